package tools

import (
	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/mark3labs/mcp-go/mcp"
)

// catchmentOptions are the latitude, longitude and radius parameters shared
// by every tool that works on a catchment circle.
func catchmentOptions(defaultRadius float64) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("Latitude of the candidate site"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("Longitude of the candidate site"),
		),
		mcp.WithNumber("radius",
			mcp.Description("Catchment radius in meters (max 10000)"),
			mcp.DefaultNumber(defaultRadius),
		),
	}
}

// parseCatchment reads and validates the catchment parameters.
func parseCatchment(req mcp.CallToolRequest, defaultRadius float64) (geo.Location, float64, *osm.APIError) {
	center := geo.Location{
		Latitude:  mcp.ParseFloat64(req, "latitude", 0),
		Longitude: mcp.ParseFloat64(req, "longitude", 0),
	}
	radius := mcp.ParseFloat64(req, "radius", defaultRadius)

	if apiErr := ValidationError(center.Latitude, center.Longitude, radius, geo.MaxSiteRadius); apiErr != nil {
		return geo.Location{}, 0, apiErr
	}
	return center, radius, nil
}

// newTool builds a tool from a name, description and option groups.
func newTool(name, description string, groups ...[]mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(description)}
	for _, g := range groups {
		opts = append(opts, g...)
	}
	return mcp.NewTool(name, opts...)
}
