// Package server provides the MCP server implementation for fuel site analysis.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NERVsystems/fuelsite/pkg/competitors"
	"github.com/NERVsystems/fuelsite/pkg/config"
	"github.com/NERVsystems/fuelsite/pkg/landuse"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/population"
	"github.com/NERVsystems/fuelsite/pkg/routing"
	"github.com/NERVsystems/fuelsite/pkg/site"
	"github.com/NERVsystems/fuelsite/pkg/store"
	"github.com/NERVsystems/fuelsite/pkg/tools"
	"github.com/NERVsystems/fuelsite/pkg/tools/prompts"
	"github.com/NERVsystems/fuelsite/pkg/version"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// ServerName is the name of the MCP server
	ServerName = "fuelsite-mcp-server"
)

// Services are the domain services built from a configuration. The CLI uses
// them directly; the MCP server exposes them as tools.
type Services struct {
	Config      config.Config
	OSM         *osm.Client
	Routing     *routing.Chain
	Competitors *competitors.Finder
	LandUse     *landuse.Analyzer
	Population  *population.Client
	Store       *store.Store
	Site        *site.Service
}

// NewServices builds every client and opens the analysis store.
func NewServices(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := osm.NewClient(osm.Options{
		Endpoints:  cfg.Endpoints,
		RateLimits: cfg.RateLimits,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.HTTPTimeout,
		Logger:     logger,
	})

	providers := routing.DefaultProviders(client, cfg.Routing.ORSAPIKey, cfg.Routing.GraphHopperAPIKey, cfg.Routing.EnableOSRM)
	if len(providers) == 0 {
		logger.Warn("no routing provider configured, road distances will be estimates")
	}
	chain := routing.NewChain(routing.Options{
		RoadFactor:      cfg.Routing.RoadFactor,
		AverageSpeedKmh: cfg.Routing.AverageSpeedKmh,
		BatchSize:       cfg.Routing.BatchSize,
		BatchDelay:      cfg.Routing.BatchDelay,
		KeepGeometry:    cfg.Routing.KeepGeometry,
		Logger:          logger,
	}, providers...)

	st, err := store.Open(ctx, cfg.Store.Path, logger)
	if err != nil {
		chain.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	finder := competitors.NewFinder(client, chain)
	analyzer := landuse.NewAnalyzer(client, cfg.Analysis.LandUseGridSize)
	pop := population.NewClient(client, population.Options{
		Year:         cfg.Population.Year,
		PollInterval: cfg.Population.PollInterval,
		MaxPolls:     cfg.Population.MaxPolls,
		Logger:       logger,
	})

	svc := site.NewService(site.Deps{
		Geocoder:    client,
		Competitors: finder,
		LandUse:     analyzer,
		Population:  pop,
		Store:       st,
		Logger:      logger,
	})

	logger.Info("services ready",
		"routing", chain.Providers(),
		"store", cfg.Store.Path,
		"population_year", pop.Year())

	return &Services{
		Config:      cfg,
		OSM:         client,
		Routing:     chain,
		Competitors: finder,
		LandUse:     analyzer,
		Population:  pop,
		Store:       st,
		Site:        svc,
	}, nil
}

// Close releases the caches and the store.
func (s *Services) Close() error {
	s.Site.Close()
	s.Routing.Close()
	return s.Store.Close()
}

// Server encapsulates the MCP server with the fuel site tools.
type Server struct {
	srv      *server.MCPServer
	services *Services
	registry *tools.Registry
}

// NewServer creates a new fuel site MCP server with all tools and prompts registered.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing fuel site MCP server",
		"name", ServerName,
		"version", version.BuildVersion)

	services, err := NewServices(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Create MCP server with options
	srv := server.NewMCPServer(
		ServerName,
		version.BuildVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	registry := tools.NewRegistry(tools.Deps{
		OSM:               services.OSM,
		Routing:           services.Routing,
		Competitors:       services.Competitors,
		LandUse:           services.LandUse,
		Population:        services.Population,
		Site:              services.Site,
		DefaultRadius:     cfg.Analysis.DefaultRadius,
		MaxRoutedStations: cfg.Analysis.MaxRoutedStations,
	}, logger)
	registry.RegisterTools(srv)
	prompts.RegisterSitePrompts(srv)

	return &Server{srv: srv, services: services, registry: registry}, nil
}

// Tools returns the registered tool definitions.
func (s *Server) Tools() []tools.ToolDefinition {
	return s.registry.GetToolDefinitions()
}

// Run starts the MCP server using stdin/stdout for communication.
func (s *Server) Run() error {
	return server.ServeStdio(s.srv)
}

// Close releases the services behind the server.
func (s *Server) Close() error {
	return s.services.Close()
}
