package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// AnalyzeLandUseTool returns a tool definition for the land-use breakdown
func (r *Registry) AnalyzeLandUseTool() mcp.Tool {
	return newTool("analyze_land_use",
		"Estimate the share of residential, commercial, retail, industrial, agricultural, green and water land inside the catchment circle",
		catchmentOptions(r.deps.DefaultRadius),
	)
}

// HandleAnalyzeLandUse implements analyze_land_use.
func (r *Registry) HandleAnalyzeLandUse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "analyze_land_use")

	center, radius, apiErr := parseCatchment(req, r.deps.DefaultRadius)
	if apiErr != nil {
		return ErrorWithGuidance(apiErr), nil
	}

	result, err := r.deps.LandUse.Analyze(ctx, center, radius)
	if err != nil {
		logger.Error("land use analysis failed", "error", err)
		return toolError(err), nil
	}

	logger.Info("land use analysis complete", "features", result.FeatureCount, "dominant", result.Dominant)
	return jsonResult(result), nil
}
