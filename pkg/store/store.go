// Package store persists site analyses in a local SQLite database so reports
// can be rebuilt across restarts without repeating upstream queries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Record is one stored analysis. Document holds the analysis as JSON.
type Record struct {
	ID           string
	Label        string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	CreatedAt    time.Time
	Document     []byte
}

// Entry is a Record without its document, as returned by List.
type Entry struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters float64   `json:"radius_m"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a SQLite-backed analysis store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		id         TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		latitude   REAL NOT NULL,
		longitude  REAL NOT NULL,
		radius_m   REAL NOT NULL,
		created_at INTEGER NOT NULL,
		document   BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC)`,
}

// Open opens (creating if needed) the database at path. SQLite is used over
// a single connection; WAL mode lets readers proceed during writes.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.tune(ctx); err != nil {
		logger.Warn("sqlite tuning skipped", "error", err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("analysis store ready", "path", path)
	return s, nil
}

func (s *Store) tune(ctx context.Context) error {
	var mode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL;").Scan(&mode); err != nil {
		return fmt.Errorf("apply journal_mode: %w", err)
	}
	s.logger.Debug("sqlite tuning", "journal_mode", mode)

	for _, pragma := range []string{
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Put inserts or replaces a record.
func (s *Store) Put(ctx context.Context, r Record) error {
	if r.ID == "" {
		return errors.New("record id is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, label, latitude, longitude, radius_m, created_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			radius_m = excluded.radius_m,
			created_at = excluded.created_at,
			document = excluded.document`,
		r.ID, r.Label, r.Latitude, r.Longitude, r.RadiusMeters, r.CreatedAt.UnixMilli(), r.Document)
	if err != nil {
		return fmt.Errorf("store analysis %s: %w", r.ID, err)
	}
	return nil
}

// Get returns the record with id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var (
		r       Record
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, latitude, longitude, radius_m, created_at, document
		FROM analyses WHERE id = ?`, id).
		Scan(&r.ID, &r.Label, &r.Latitude, &r.Longitude, &r.RadiusMeters, &created, &r.Document)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load analysis %s: %w", id, err)
	}
	r.CreatedAt = time.UnixMilli(created)
	return r, nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, latitude, longitude, radius_m, created_at
		FROM analyses ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Label, &e.Latitude, &e.Longitude, &e.RadiusMeters, &created); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the record with id; ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
