// Package config loads fuelsite settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvORSAPIKey         = "FUELSITE_ORS_API_KEY"
	EnvGraphHopperAPIKey = "FUELSITE_GRAPHHOPPER_API_KEY"
	EnvDBPath            = "FUELSITE_DB_PATH"
	EnvUserAgent         = "FUELSITE_USER_AGENT"
	EnvEnableOSRM        = "FUELSITE_ENABLE_OSRM"
	EnvPopulationYear    = "FUELSITE_POPULATION_YEAR"
)

// DefaultEnvFile is read when present in the working directory.
const DefaultEnvFile = ".env"

// RoutingConfig configures the road-distance chain.
type RoutingConfig struct {
	ORSAPIKey         string        `yaml:"ors_api_key"`
	GraphHopperAPIKey string        `yaml:"graphhopper_api_key"`
	EnableOSRM        bool          `yaml:"enable_osrm"`
	RoadFactor        float64       `yaml:"road_factor"`
	AverageSpeedKmh   float64       `yaml:"average_speed_kmh"`
	BatchSize         int           `yaml:"batch_size"`
	BatchDelay        time.Duration `yaml:"batch_delay"`
	KeepGeometry      bool          `yaml:"keep_geometry"`
}

// PopulationConfig configures WorldPop requests.
type PopulationConfig struct {
	Year         int           `yaml:"year"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// AnalysisConfig holds defaults for site analyses.
type AnalysisConfig struct {
	DefaultRadius     float64 `yaml:"default_radius_m"`
	MaxRoutedStations int     `yaml:"max_routed_stations"`
	LandUseGridSize   int     `yaml:"land_use_grid_size"`
}

// StoreConfig locates the analysis database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Config is the complete fuelsite configuration.
type Config struct {
	UserAgent   string                   `yaml:"user_agent"`
	HTTPTimeout time.Duration            `yaml:"http_timeout"`
	Endpoints   osm.Endpoints            `yaml:"endpoints"`
	RateLimits  map[string]osm.RateLimit `yaml:"rate_limits,omitempty"`
	Routing     RoutingConfig            `yaml:"routing"`
	Population  PopulationConfig         `yaml:"population"`
	Analysis    AnalysisConfig           `yaml:"analysis"`
	Store       StoreConfig              `yaml:"store"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		UserAgent:   osm.DefaultUserAgent,
		HTTPTimeout: 30 * time.Second,
		Endpoints:   osm.DefaultEndpoints(),
		Routing: RoutingConfig{
			EnableOSRM:      false,
			RoadFactor:      1.3,
			AverageSpeedKmh: 40,
			BatchSize:       5,
			BatchDelay:      time.Second,
		},
		Population: PopulationConfig{
			Year:         2020,
			PollInterval: 2 * time.Second,
			MaxPolls:     30,
		},
		Analysis: AnalysisConfig{
			DefaultRadius:     3000,
			MaxRoutedStations: 15,
			LandUseGridSize:   60,
		},
		Store: StoreConfig{Path: defaultDBPath()},
	}
}

func defaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "fuelsite.db"
	}
	return filepath.Join(dir, "fuelsite", "fuelsite.db")
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then the env files, then the process environment.
// Missing env files are ignored; with no envFiles given DefaultEnvFile is tried.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvORSAPIKey); v != "" {
		c.Routing.ORSAPIKey = v
	}
	if v := os.Getenv(EnvGraphHopperAPIKey); v != "" {
		c.Routing.GraphHopperAPIKey = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv(EnvEnableOSRM); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnableOSRM, err)
		}
		c.Routing.EnableOSRM = b
	}
	if v := os.Getenv(EnvPopulationYear); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPopulationYear, err)
		}
		c.Population.Year = y
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error

	if c.UserAgent == "" {
		errs = append(errs, errors.New("user_agent must not be empty"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http_timeout must be positive"))
	}
	if c.Routing.RoadFactor < 1 {
		errs = append(errs, fmt.Errorf("routing.road_factor %.2f must be at least 1", c.Routing.RoadFactor))
	}
	if c.Routing.AverageSpeedKmh <= 0 {
		errs = append(errs, errors.New("routing.average_speed_kmh must be positive"))
	}
	if c.Routing.BatchSize < 1 {
		errs = append(errs, errors.New("routing.batch_size must be at least 1"))
	}
	if c.Routing.BatchDelay < 0 {
		errs = append(errs, errors.New("routing.batch_delay must not be negative"))
	}
	if c.Population.Year < 2000 || c.Population.Year > 2100 {
		errs = append(errs, fmt.Errorf("population.year %d out of range", c.Population.Year))
	}
	if c.Population.PollInterval <= 0 || c.Population.MaxPolls < 1 {
		errs = append(errs, errors.New("population.poll_interval and max_polls must be positive"))
	}
	if err := geo.ValidateRadius(c.Analysis.DefaultRadius, geo.MaxSiteRadius); err != nil {
		errs = append(errs, fmt.Errorf("analysis.default_radius_m: %w", err))
	}
	if c.Analysis.MaxRoutedStations < 1 {
		errs = append(errs, errors.New("analysis.max_routed_stations must be at least 1"))
	}
	if c.Analysis.LandUseGridSize < 10 {
		errs = append(errs, errors.New("analysis.land_use_grid_size must be at least 10"))
	}
	for service, rl := range c.RateLimits {
		if _, ok := osm.DefaultRateLimits()[service]; !ok {
			errs = append(errs, fmt.Errorf("rate_limits: unknown service %q", service))
		}
		if rl.Every < 0 || rl.Burst < 0 {
			errs = append(errs, fmt.Errorf("rate_limits.%s must not be negative", service))
		}
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}

	return errors.Join(errs...)
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HasRoutingKeys reports whether any keyed routing provider is configured.
func (c Config) HasRoutingKeys() bool {
	return c.Routing.ORSAPIKey != "" || c.Routing.GraphHopperAPIKey != ""
}
