package tools

import (
	"context"
	"fmt"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/routing"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxDestinations bounds one compute_road_distances call.
const maxDestinations = 100

// RoadDistancesOutput is the result of compute_road_distances.
type RoadDistancesOutput struct {
	Origin    geo.Location     `json:"origin"`
	Results   []routing.Result `json:"results"`
	Estimated int              `json:"estimated"`
	Providers []string         `json:"providers"`
}

// ComputeRoadDistancesTool returns a tool definition for batch road distances
func (r *Registry) ComputeRoadDistancesTool() mcp.Tool {
	return mcp.NewTool("compute_road_distances",
		mcp.WithDescription("Compute driving distances from a site to many destinations. Falls back to a straight-line estimate when no routing service answers."),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("Latitude of the origin"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("Longitude of the origin"),
		),
		mcp.WithArray("destinations",
			mcp.Required(),
			mcp.Description("Destinations as objects with latitude and longitude"),
		),
		mcp.WithBoolean("include_geometry",
			mcp.Description("Return each route's shape and its length. Estimates have no shape."),
			mcp.DefaultBool(r.deps.Routing.KeepsGeometry()),
		),
	)
}

// HandleComputeRoadDistances implements compute_road_distances.
func (r *Registry) HandleComputeRoadDistances(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "compute_road_distances")

	origin := geo.Location{
		Latitude:  mcp.ParseFloat64(req, "latitude", 0),
		Longitude: mcp.ParseFloat64(req, "longitude", 0),
	}
	if apiErr := ValidationError(origin.Latitude, origin.Longitude, 1, geo.MaxSiteRadius); apiErr != nil {
		return ErrorWithGuidance(apiErr), nil
	}

	var destinations []geo.Location
	if err := ParseArray(req, "destinations", &destinations); err != nil {
		logger.Error("invalid destinations", "error", err)
		return ErrorResponse(fmt.Sprintf("Invalid destinations: %v", err)), nil
	}
	if len(destinations) == 0 {
		return ErrorResponse("At least one destination is required"), nil
	}
	if len(destinations) > maxDestinations {
		return ErrorResponse(fmt.Sprintf("At most %d destinations are allowed", maxDestinations)), nil
	}
	for i, d := range destinations {
		if err := geo.ValidateCoords(d.Latitude, d.Longitude); err != nil {
			return ErrorResponse(fmt.Sprintf("Destination %d: %v", i, err)), nil
		}
	}

	geometry := mcp.ParseBoolean(req, "include_geometry", r.deps.Routing.KeepsGeometry())
	results := r.deps.Routing.BatchGeometry(ctx, origin, destinations, geometry)

	estimated := 0
	for _, res := range results {
		if res.Estimated {
			estimated++
		}
	}
	logger.Info("road distances computed", "destinations", len(results), "estimated", estimated)

	return jsonResult(RoadDistancesOutput{
		Origin:    origin,
		Results:   results,
		Estimated: estimated,
		Providers: r.deps.Routing.Providers(),
	}), nil
}
