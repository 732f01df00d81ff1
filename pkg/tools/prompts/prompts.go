// Package prompts provides prompt templates for use with the MCP server.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterSitePrompts registers the site analysis prompts with the MCP server
func RegisterSitePrompts(s *server.MCPServer) {
	s.AddPrompt(mcp.NewPrompt("site_analysis",
		mcp.WithPromptDescription("How to evaluate a candidate fuel station site with the available tools"),
	), SiteAnalysisPromptHandler)

	s.AddPrompt(mcp.NewPrompt("site_address_format",
		mcp.WithPromptDescription("Examples of addresses that geocode reliably"),
	), AddressFormatPromptHandler)

	s.AddPrompt(mcp.NewPrompt("compare_sites",
		mcp.WithPromptDescription("Compare several candidate sites side by side"),
		mcp.WithArgument("sites",
			mcp.RequiredArgument(),
			mcp.ArgumentDescription("Candidate addresses separated by semicolons"),
		),
		mcp.WithArgument("radius",
			mcp.ArgumentDescription("Catchment radius in meters, 3000 when omitted"),
		),
	), CompareSitesPromptHandler)
}

const siteAnalysisPrompt = `You can evaluate candidate fuel station sites using OpenStreetMap, routing services and WorldPop population data.

Recommended workflow:
1. Call analyze_site with the address (or latitude/longitude) and a catchment radius. 3000 m suits urban sites; use 5000 to 10000 m for rural roads.
2. Read the key figures first: competitor count, nearest competitor, residents per station and the dominant land use.
3. Call get_site_report with the returned analysis_id whenever you need the report again. It never queries the upstream services.
4. Use the single-purpose tools to dig deeper:
   - find_competitor_stations for the full competitor list and brand shares
   - compute_road_distances for driving distances to specific points
   - analyze_land_use and estimate_population for a different radius

Interpreting results:
- Road distances marked as estimated are straight-line distances multiplied by a road factor. Treat them as approximate.
- A section error (for example population unavailable) does not invalidate the rest of the analysis.
- High residential and commercial shares with few competitors indicate unmet demand.
- Many stations of one brand nearby indicate a saturated market for that brand.`

// SiteAnalysisPromptHandler returns the main workflow prompt
func SiteAnalysisPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult(
		"Fuel Site Analysis Workflow",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(siteAnalysisPrompt)),
		},
	), nil
}

const addressFormatPrompt = `Addresses geocode best when they name the street, the town and the country.

GOOD: "A38 Gloucester Road, Bristol, United Kingdom"
BAD:  "the old garage on the A38"

GOOD: "Rua Augusta 100, Lisbon, Portugal"
BAD:  "Rua Augusta (near the arch)"

Text in parentheses is dropped before lookup. If an address fails, remove house numbers first, then fall back to the road and town, or pass latitude and longitude directly.`

// AddressFormatPromptHandler returns address formatting examples
func AddressFormatPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult(
		"Site Address Examples",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(addressFormatPrompt)),
		},
	), nil
}

// CompareSitesPromptHandler builds a comparison plan for the given sites
func CompareSitesPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var sites []string
	for _, s := range strings.Split(request.Params.Arguments["sites"], ";") {
		if s = strings.TrimSpace(s); s != "" {
			sites = append(sites, s)
		}
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("at least one site is required")
	}

	radius := strings.TrimSpace(request.Params.Arguments["radius"])
	if radius == "" {
		radius = "3000"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Compare these %d candidate sites using a %s m catchment:\n", len(sites), radius)
	for i, s := range sites {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString(`
For each site call analyze_site with the same radius. Then build one table with:
competitor count, nearest competitor distance, population, residents per station and dominant land use.
Rank the sites by residents per station and explain the ranking in two or three sentences.`)

	return mcp.NewGetPromptResult(
		"Compare Candidate Sites",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(b.String())),
		},
	), nil
}
