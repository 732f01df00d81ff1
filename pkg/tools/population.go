package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// EstimatePopulationTool returns a tool definition for catchment population
func (r *Registry) EstimatePopulationTool() mcp.Tool {
	return newTool("estimate_population",
		"Estimate the number of residents inside the catchment circle from WorldPop gridded data. Large circles can take up to a minute.",
		catchmentOptions(r.deps.DefaultRadius),
	)
}

// HandleEstimatePopulation implements estimate_population.
func (r *Registry) HandleEstimatePopulation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "estimate_population")

	center, radius, apiErr := parseCatchment(req, r.deps.DefaultRadius)
	if apiErr != nil {
		return ErrorWithGuidance(apiErr), nil
	}

	estimate, err := r.deps.Population.Total(ctx, center, radius)
	if err != nil {
		logger.Error("population estimate failed", "error", err)
		return toolError(err), nil
	}

	logger.Info("population estimate complete", "total", estimate.Total, "year", estimate.Year)
	return jsonResult(estimate), nil
}
