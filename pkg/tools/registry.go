package tools

import (
	"context"
	"log/slog"

	"github.com/NERVsystems/fuelsite/pkg/competitors"
	"github.com/NERVsystems/fuelsite/pkg/landuse"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/population"
	"github.com/NERVsystems/fuelsite/pkg/routing"
	"github.com/NERVsystems/fuelsite/pkg/site"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Deps are the services the tools call into.
type Deps struct {
	OSM               *osm.Client
	Routing           *routing.Chain
	Competitors       *competitors.Finder
	LandUse           *landuse.Analyzer
	Population        *population.Client
	Site              *site.Service
	DefaultRadius     float64
	MaxRoutedStations int
}

// Registry holds all MCP tool registrations for the fuel-site service.
type Registry struct {
	deps   Deps
	logger *slog.Logger
}

// NewRegistry creates a new MCP tool registry.
func NewRegistry(deps Deps, logger *slog.Logger) *Registry {
	if deps.DefaultRadius <= 0 {
		deps.DefaultRadius = site.DefaultRadius
	}
	if deps.MaxRoutedStations <= 0 {
		deps.MaxRoutedStations = site.DefaultMaxRoutedStations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		deps:   deps,
		logger: logger,
	}
}

// ToolDefinition represents a fuel-site MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns all fuel-site MCP tool definitions.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		// Site location
		{
			Name:        "geocode_site",
			Description: "Convert the address of a candidate site to coordinates",
			Tool:        GeocodeSiteTool(),
			Handler:     r.HandleGeocodeSite,
		},
		{
			Name:        "reverse_geocode_site",
			Description: "Convert the coordinates of a candidate site to an address",
			Tool:        ReverseGeocodeSiteTool(),
			Handler:     r.HandleReverseGeocodeSite,
		},

		// Catchment
		{
			Name:        "find_competitor_stations",
			Description: "Find competing fuel stations around a site",
			Tool:        r.FindCompetitorStationsTool(),
			Handler:     r.HandleFindCompetitorStations,
		},
		{
			Name:        "compute_road_distances",
			Description: "Compute driving distances from a site to a list of destinations",
			Tool:        r.ComputeRoadDistancesTool(),
			Handler:     r.HandleComputeRoadDistances,
		},
		{
			Name:        "analyze_land_use",
			Description: "Break down the land use around a site by category",
			Tool:        r.AnalyzeLandUseTool(),
			Handler:     r.HandleAnalyzeLandUse,
		},
		{
			Name:        "estimate_population",
			Description: "Estimate the population living around a site",
			Tool:        r.EstimatePopulationTool(),
			Handler:     r.HandleEstimatePopulation,
		},

		// Analyses
		{
			Name:        "analyze_site",
			Description: "Run a full site analysis and store it",
			Tool:        r.AnalyzeSiteTool(),
			Handler:     r.HandleAnalyzeSite,
		},
		{
			Name:        "get_site_report",
			Description: "Build the report of a stored site analysis",
			Tool:        GetSiteReportTool(),
			Handler:     r.HandleGetSiteReport,
		},
		{
			Name:        "list_site_analyses",
			Description: "List stored site analyses, newest first",
			Tool:        ListSiteAnalysesTool(),
			Handler:     r.HandleListSiteAnalyses,
		},
		{
			Name:        "delete_site_analysis",
			Description: "Delete a stored site analysis",
			Tool:        DeleteSiteAnalysisTool(),
			Handler:     r.HandleDeleteSiteAnalysis,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}
