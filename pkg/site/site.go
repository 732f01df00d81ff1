// Package site runs a complete fuel-site analysis: it resolves the candidate
// location, gathers competitors, land use and population for the catchment
// circle, and keeps the result so reports can be rebuilt later.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/cache"
	"github.com/NERVsystems/fuelsite/pkg/competitors"
	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/landuse"
	"github.com/NERVsystems/fuelsite/pkg/population"
	"github.com/NERVsystems/fuelsite/pkg/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned when an analysis id is unknown.
var ErrNotFound = errors.New("site analysis not found")

const (
	// DefaultRadius is the catchment radius used when none is given.
	DefaultRadius = 3000.0
	// DefaultMaxRoutedStations limits road-distance lookups to the nearest stations.
	DefaultMaxRoutedStations = 15

	memoryTTL      = 6 * time.Hour
	memoryMaxItems = 100
)

// Geocoder resolves addresses and coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Place, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (geo.Place, error)
}

// CompetitorFinder finds fuel stations and their road distances.
type CompetitorFinder interface {
	Find(ctx context.Context, center geo.Location, radius float64) ([]competitors.Station, error)
	WithRoadDistances(ctx context.Context, center geo.Location, stations []competitors.Station) []competitors.Station
}

// LandUseAnalyzer computes the land-use breakdown of a circle.
type LandUseAnalyzer interface {
	Analyze(ctx context.Context, center geo.Location, radius float64) (landuse.Result, error)
}

// PopulationEstimator estimates the population of a circle.
type PopulationEstimator interface {
	Total(ctx context.Context, center geo.Location, radius float64) (population.Estimate, error)
}

// Request describes the site to analyse. Either Address or Location is required.
type Request struct {
	Address      string        `json:"address,omitempty"`
	Location     *geo.Location `json:"location,omitempty"`
	Label        string        `json:"label,omitempty"`
	RadiusMeters float64       `json:"radius_m"`
	// RoadDistances enables routing to the nearest MaxRoutedStations
	// competitors; a zero MaxRoutedStations selects DefaultMaxRoutedStations.
	RoadDistances     bool `json:"road_distances"`
	MaxRoutedStations int  `json:"max_routed_stations,omitempty"`
}

// CompetitorSection is the competitor part of an analysis.
type CompetitorSection struct {
	Stations []competitors.Station `json:"stations"`
	Summary  competitors.Summary   `json:"summary"`
	Error    string                `json:"error,omitempty"`
}

// LandUseSection is the land-use part of an analysis.
type LandUseSection struct {
	Result *landuse.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// PopulationSection is the population part of an analysis.
type PopulationSection struct {
	Estimate *population.Estimate `json:"estimate,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Analysis is a completed site analysis.
type Analysis struct {
	ID           string            `json:"id"`
	Label        string            `json:"label"`
	Site         geo.Place         `json:"site"`
	RadiusMeters float64           `json:"radius_m"`
	CreatedAt    time.Time         `json:"created_at"`
	Competitors  CompetitorSection `json:"competitors"`
	LandUse      LandUseSection    `json:"land_use"`
	Population   PopulationSection `json:"population"`
}

// SectionErrors lists the sections that failed, keyed by section name.
func (a *Analysis) SectionErrors() map[string]string {
	errs := make(map[string]string)
	if a.Competitors.Error != "" {
		errs["competitors"] = a.Competitors.Error
	}
	if a.LandUse.Error != "" {
		errs["land_use"] = a.LandUse.Error
	}
	if a.Population.Error != "" {
		errs["population"] = a.Population.Error
	}
	return errs
}

// Deps are the collaborators of a Service.
type Deps struct {
	Geocoder    Geocoder
	Competitors CompetitorFinder
	LandUse     LandUseAnalyzer
	Population  PopulationEstimator
	Store       *store.Store
	Logger      *slog.Logger
}

// Service orchestrates analyses and serves stored results.
type Service struct {
	deps   Deps
	logger *slog.Logger
	memory *cache.TTLCache[string, *Analysis]
	now    func() time.Time
}

// NewService creates a Service. Deps.Store must be set.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		logger: logger.With("component", "site"),
		memory: cache.NewTTLCache[string, *Analysis](memoryTTL, 10*time.Minute, memoryMaxItems),
		now:    time.Now,
	}
}

// Close releases the in-memory cache. The store is owned by the caller.
func (s *Service) Close() {
	s.memory.Stop()
}

// Resolve turns a request into a place, geocoding or reverse geocoding as needed.
func (s *Service) Resolve(ctx context.Context, req Request) (geo.Place, error) {
	if req.Location != nil {
		loc := *req.Location
		if err := geo.ValidateCoords(loc.Latitude, loc.Longitude); err != nil {
			return geo.Place{}, err
		}

		place, err := s.deps.Geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			// the label is cosmetic; keep the caller's coordinates
			s.logger.Warn("reverse geocoding failed, using coordinates as label", "error", err)
			place = geo.Place{Name: fmt.Sprintf("%.5f, %.5f", loc.Latitude, loc.Longitude)}
		}
		place.Location = loc
		return place, nil
	}

	if req.Address == "" {
		return geo.Place{}, errors.New("either address or location is required")
	}
	place, err := s.deps.Geocoder.Geocode(ctx, req.Address)
	if err != nil {
		return geo.Place{}, fmt.Errorf("geocode %q: %w", req.Address, err)
	}
	return place, nil
}

// Analyze runs a full analysis. Competitors, land use and population are
// gathered concurrently; a failing section is recorded on the analysis
// instead of failing the call.
func (s *Service) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if req.RadiusMeters == 0 {
		req.RadiusMeters = DefaultRadius
	}
	if err := geo.ValidateRadius(req.RadiusMeters, geo.MaxSiteRadius); err != nil {
		return nil, err
	}
	if req.MaxRoutedStations <= 0 {
		req.MaxRoutedStations = DefaultMaxRoutedStations
	}

	place, err := s.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		ID:           uuid.NewString(),
		Label:        req.Label,
		Site:         place,
		RadiusMeters: req.RadiusMeters,
		CreatedAt:    s.now().UTC(),
	}
	if a.Label == "" {
		a.Label = place.Name
	}

	logger := s.logger.With("analysis", a.ID)
	logger.Info("starting site analysis",
		"label", a.Label,
		"lat", place.Location.Latitude,
		"lon", place.Location.Longitude,
		"radius", req.RadiusMeters)

	center := place.Location
	var g errgroup.Group

	g.Go(func() error {
		stations, err := s.deps.Competitors.Find(ctx, center, req.RadiusMeters)
		if err != nil {
			logger.Warn("competitor section failed", "error", err)
			a.Competitors = CompetitorSection{Stations: []competitors.Station{}, Error: err.Error()}
			a.Competitors.Summary = competitors.Summarize(nil)
			return nil
		}
		if req.RoadDistances && len(stations) > 0 {
			n := min(req.MaxRoutedStations, len(stations))
			routed := s.deps.Competitors.WithRoadDistances(ctx, center, stations[:n])
			stations = append(routed, stations[n:]...)
		}
		a.Competitors = CompetitorSection{Stations: stations, Summary: competitors.Summarize(stations)}
		return nil
	})

	g.Go(func() error {
		r, err := s.deps.LandUse.Analyze(ctx, center, req.RadiusMeters)
		if err != nil {
			logger.Warn("land use section failed", "error", err)
			a.LandUse.Error = err.Error()
			return nil
		}
		a.LandUse.Result = &r
		return nil
	})

	g.Go(func() error {
		est, err := s.deps.Population.Total(ctx, center, req.RadiusMeters)
		if err != nil {
			logger.Warn("population section failed", "error", err)
			a.Population.Error = err.Error()
			return nil
		}
		a.Population.Estimate = &est
		return nil
	})

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	logger.Info("site analysis complete",
		"competitors", a.Competitors.Summary.Count,
		"section_errors", len(a.SectionErrors()))
	return a, nil
}

func (s *Service) save(ctx context.Context, a *Analysis) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	err = s.deps.Store.Put(ctx, store.Record{
		ID:           a.ID,
		Label:        a.Label,
		Latitude:     a.Site.Location.Latitude,
		Longitude:    a.Site.Location.Longitude,
		RadiusMeters: a.RadiusMeters,
		CreatedAt:    a.CreatedAt,
		Document:     doc,
	})
	if err != nil {
		return err
	}
	s.memory.Set(a.ID, a)
	return nil
}

// Get returns a stored analysis from memory or the store.
func (s *Service) Get(ctx context.Context, id string) (*Analysis, error) {
	if a, ok := s.memory.Get(id); ok {
		return a, nil
	}

	rec, err := s.deps.Store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var a Analysis
	if err := json.Unmarshal(rec.Document, &a); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", id, err)
	}
	s.memory.Set(id, &a)
	return &a, nil
}

// List returns the most recent analyses, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]store.Entry, error) {
	return s.deps.Store.List(ctx, limit)
}

// Delete removes an analysis from memory and the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.memory.Delete(id)
	err := s.deps.Store.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// Report builds the report of a stored analysis. It never contacts upstream services.
func (s *Service) Report(ctx context.Context, id string) (*Report, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildReport(a, s.now()), nil
}
