package tools

import (
	"context"
	"fmt"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/site"
	"github.com/NERVsystems/fuelsite/pkg/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// AnalyzeSiteOutput is the result of analyze_site. The full analysis is
// stored; the output carries the ID and the rendered report.
type AnalyzeSiteOutput struct {
	AnalysisID    string            `json:"analysis_id"`
	SectionErrors map[string]string `json:"section_errors,omitempty"`
	Report        *site.Report      `json:"report"`
}

// AnalyzeSiteTool returns a tool definition for a full site analysis
func (r *Registry) AnalyzeSiteTool() mcp.Tool {
	return mcp.NewTool("analyze_site",
		mcp.WithDescription("Analyze a candidate fuel station site: competitors, land use and population in one call. The analysis is stored and can be fetched again with get_site_report."),
		mcp.WithString("address",
			mcp.Description("Address of the site. Either address or latitude/longitude is required."),
		),
		mcp.WithNumber("latitude",
			mcp.Description("Latitude of the site"),
		),
		mcp.WithNumber("longitude",
			mcp.Description("Longitude of the site"),
		),
		mcp.WithNumber("radius",
			mcp.Description("Catchment radius in meters (max 10000)"),
			mcp.DefaultNumber(r.deps.DefaultRadius),
		),
		mcp.WithString("label",
			mcp.Description("Optional name for the analysis"),
		),
		mcp.WithBoolean("road_distances",
			mcp.Description("Compute driving distances to the nearest competitors"),
			mcp.DefaultBool(true),
		),
	)
}

// HandleAnalyzeSite implements analyze_site.
func (r *Registry) HandleAnalyzeSite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "analyze_site")

	siteReq := site.Request{
		Address:           mcp.ParseString(req, "address", ""),
		Label:             mcp.ParseString(req, "label", ""),
		RadiusMeters:      mcp.ParseFloat64(req, "radius", r.deps.DefaultRadius),
		RoadDistances:     mcp.ParseBoolean(req, "road_distances", true),
		MaxRoutedStations: r.deps.MaxRoutedStations,
	}

	_, hasLat := req.Params.Arguments["latitude"]
	_, hasLon := req.Params.Arguments["longitude"]
	switch {
	case hasLat && hasLon:
		loc := geo.Location{
			Latitude:  mcp.ParseFloat64(req, "latitude", 0),
			Longitude: mcp.ParseFloat64(req, "longitude", 0),
		}
		siteReq.Location = &loc
	case hasLat || hasLon:
		return ErrorResponse("Both latitude and longitude are required when giving coordinates"), nil
	case siteReq.Address == "":
		return ErrorResponse("Either address or latitude/longitude is required"), nil
	}

	lat, lon := 0.0, 0.0
	if siteReq.Location != nil {
		lat, lon = siteReq.Location.Latitude, siteReq.Location.Longitude
	}
	if apiErr := ValidationError(lat, lon, siteReq.RadiusMeters, geo.MaxSiteRadius); apiErr != nil {
		return ErrorWithGuidance(apiErr), nil
	}

	analysis, err := r.deps.Site.Analyze(ctx, siteReq)
	if err != nil {
		logger.Error("site analysis failed", "error", err)
		return toolError(err), nil
	}

	report, err := r.deps.Site.Report(ctx, analysis.ID)
	if err != nil {
		logger.Error("failed to build report", "id", analysis.ID, "error", err)
		return toolError(err), nil
	}

	logger.Info("site analysis complete", "id", analysis.ID, "site", analysis.Label)
	return jsonResult(AnalyzeSiteOutput{
		AnalysisID:    analysis.ID,
		SectionErrors: analysis.SectionErrors(),
		Report:        report,
	}), nil
}

// GetSiteReportTool returns a tool definition for stored reports
func GetSiteReportTool() mcp.Tool {
	return mcp.NewTool("get_site_report",
		mcp.WithDescription("Build the report of a stored site analysis. Uses stored data only."),
		mcp.WithString("analysis_id",
			mcp.Required(),
			mcp.Description("ID returned by analyze_site"),
		),
		mcp.WithString("format",
			mcp.Description("Report format"),
			mcp.Enum("text", "json"),
			mcp.DefaultString("text"),
		),
	)
}

// HandleGetSiteReport implements get_site_report.
func (r *Registry) HandleGetSiteReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "get_site_report")

	id := mcp.ParseString(req, "analysis_id", "")
	if id == "" {
		return ErrorResponse("analysis_id is required"), nil
	}
	format := mcp.ParseString(req, "format", "text")
	if format != "text" && format != "json" {
		return ErrorResponse(fmt.Sprintf("Unknown format %q, use text or json", format)), nil
	}

	report, err := r.deps.Site.Report(ctx, id)
	if err != nil {
		logger.Error("failed to build report", "id", id, "error", err)
		return toolError(err), nil
	}

	if format == "text" {
		return mcp.NewToolResultText(report.Text), nil
	}
	return jsonResult(report), nil
}

// ListSiteAnalysesOutput is the result of list_site_analyses.
type ListSiteAnalysesOutput struct {
	Analyses []store.Entry `json:"analyses"`
}

// ListSiteAnalysesTool returns a tool definition for listing analyses
func ListSiteAnalysesTool() mcp.Tool {
	return mcp.NewTool("list_site_analyses",
		mcp.WithDescription("List stored site analyses, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of analyses to return"),
			mcp.DefaultNumber(store.DefaultListLimit),
		),
	)
}

// HandleListSiteAnalyses implements list_site_analyses.
func (r *Registry) HandleListSiteAnalyses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "list_site_analyses")

	limit := int(mcp.ParseFloat64(req, "limit", store.DefaultListLimit))
	if limit <= 0 || limit > 500 {
		return ErrorResponse("limit must be between 1 and 500"), nil
	}

	entries, err := r.deps.Site.List(ctx, limit)
	if err != nil {
		logger.Error("failed to list analyses", "error", err)
		return toolError(err), nil
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	return jsonResult(ListSiteAnalysesOutput{Analyses: entries}), nil
}

// DeleteSiteAnalysisTool returns a tool definition for deleting an analysis
func DeleteSiteAnalysisTool() mcp.Tool {
	return mcp.NewTool("delete_site_analysis",
		mcp.WithDescription("Delete a stored site analysis"),
		mcp.WithString("analysis_id",
			mcp.Required(),
			mcp.Description("ID returned by analyze_site"),
		),
	)
}

// HandleDeleteSiteAnalysis implements delete_site_analysis.
func (r *Registry) HandleDeleteSiteAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "delete_site_analysis")

	id := mcp.ParseString(req, "analysis_id", "")
	if id == "" {
		return ErrorResponse("analysis_id is required"), nil
	}
	if err := r.deps.Site.Delete(ctx, id); err != nil {
		logger.Error("failed to delete analysis", "id", id, "error", err)
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"deleted": id}), nil
}
