package tools

import (
	"context"

	"github.com/NERVsystems/fuelsite/pkg/competitors"
	"github.com/mark3labs/mcp-go/mcp"
)

// FindCompetitorsOutput is the result of find_competitor_stations.
type FindCompetitorsOutput struct {
	Stations []competitors.Station `json:"stations"`
	Summary  competitors.Summary   `json:"summary"`
}

// FindCompetitorStationsTool returns a tool definition for competitor discovery
func (r *Registry) FindCompetitorStationsTool() mcp.Tool {
	return newTool("find_competitor_stations",
		"Find competing fuel stations around a candidate site, nearest first, with a brand share table",
		catchmentOptions(r.deps.DefaultRadius),
		[]mcp.ToolOption{
			mcp.WithBoolean("road_distances",
				mcp.Description("Also compute driving distances to the nearest stations"),
				mcp.DefaultBool(false),
			),
			mcp.WithNumber("max_routed",
				mcp.Description("How many of the nearest stations get a driving distance"),
				mcp.DefaultNumber(float64(r.deps.MaxRoutedStations)),
			),
		},
	)
}

// HandleFindCompetitorStations implements find_competitor_stations.
func (r *Registry) HandleFindCompetitorStations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "find_competitor_stations")

	center, radius, apiErr := parseCatchment(req, r.deps.DefaultRadius)
	if apiErr != nil {
		return ErrorWithGuidance(apiErr), nil
	}
	withRoad := mcp.ParseBoolean(req, "road_distances", false)
	maxRouted := int(mcp.ParseFloat64(req, "max_routed", float64(r.deps.MaxRoutedStations)))

	stations, err := r.deps.Competitors.Find(ctx, center, radius)
	if err != nil {
		logger.Error("competitor search failed", "error", err)
		return toolError(err), nil
	}

	if withRoad && maxRouted > 0 && len(stations) > 0 {
		n := min(maxRouted, len(stations))
		routed := r.deps.Competitors.WithRoadDistances(ctx, center, stations[:n])
		stations = append(routed, stations[n:]...)
	}

	logger.Info("competitor search complete", "stations", len(stations), "road_distances", withRoad)
	return jsonResult(FindCompetitorsOutput{
		Stations: stations,
		Summary:  competitors.Summarize(stations),
	}), nil
}
