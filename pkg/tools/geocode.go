package tools

import (
	"context"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/mark3labs/mcp-go/mcp"
)

// GeocodeSiteOutput defines the output format for geocoded sites
type GeocodeSiteOutput struct {
	Place geo.Place `json:"place"`
	// Query is the address actually sent after cleanup
	Query string `json:"query"`
	// Ignored holds parenthesised text removed from the address
	Ignored string `json:"ignored,omitempty"`
}

// GeocodeSiteTool returns a tool definition for geocoding a candidate site
func GeocodeSiteTool() mcp.Tool {
	return mcp.NewTool("geocode_site",
		mcp.WithDescription("Convert the address of a candidate fuel site to coordinates"),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("Address or place name, ideally with town and country"),
		),
	)
}

// HandleGeocodeSite implements geocode_site.
func (r *Registry) HandleGeocodeSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "geocode_site")

	address := mcp.ParseString(req, "address", "")
	cleaned, ignored := osm.SanitizeAddress(address)
	if cleaned == "" {
		return ErrorResponse("Address must not be empty"), nil
	}

	place, err := r.deps.OSM.Geocode(ctx, address)
	if err != nil {
		logger.Error("geocoding failed", "address", cleaned, "error", err)
		return toolError(err), nil
	}

	return jsonResult(GeocodeSiteOutput{Place: place, Query: cleaned, Ignored: ignored}), nil
}

// ReverseGeocodeSiteOutput defines the output format for reverse geocoded sites
type ReverseGeocodeSiteOutput struct {
	Place geo.Place `json:"place"`
}

// ReverseGeocodeSiteTool returns a tool definition for reverse geocoding
func ReverseGeocodeSiteTool() mcp.Tool {
	return mcp.NewTool("reverse_geocode_site",
		mcp.WithDescription("Convert the coordinates of a candidate fuel site to an address"),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("The latitude coordinate"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("The longitude coordinate"),
		),
	)
}

// HandleReverseGeocodeSite implements reverse_geocode_site.
func (r *Registry) HandleReverseGeocodeSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "reverse_geocode_site")

	lat := mcp.ParseFloat64(req, "latitude", 0)
	lon := mcp.ParseFloat64(req, "longitude", 0)
	if apiErr := ValidationError(lat, lon, 1, geo.MaxSiteRadius); apiErr != nil {
		return ErrorWithGuidance(apiErr), nil
	}

	place, err := r.deps.OSM.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Error("reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return toolError(err), nil
	}

	return jsonResult(ReverseGeocodeSiteOutput{Place: place}), nil
}
