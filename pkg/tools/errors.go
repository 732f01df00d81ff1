// Package tools provides the fuel-site MCP tool implementations.
package tools

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/site"
	"github.com/mark3labs/mcp-go/mcp"
)

// ServiceValidation marks errors raised before any upstream call.
const ServiceValidation = "validation"

// GuidanceValidation is attached to parameter errors.
const GuidanceValidation = "Please correct the parameters and try again."

// ErrorWithGuidance returns a properly formatted error response with user guidance.
func ErrorWithGuidance(err *osm.APIError) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s\n\nGuidance: %s", err.Message, err.Guidance)
	return mcp.NewToolResultError(errorText)
}

// ValidationError creates an error for invalid coordinate or radius parameters.
// It returns nil when all values are acceptable.
func ValidationError(lat, lon, radius, maxRadius float64) *osm.APIError {
	err := geo.ValidateCoords(lat, lon)
	if err == nil {
		err = geo.ValidateRadius(radius, maxRadius)
	}
	if err == nil {
		return nil
	}

	return &osm.APIError{
		Service:     ServiceValidation,
		StatusCode:  http.StatusBadRequest,
		Message:     err.Error(),
		Recoverable: true,
		Guidance:    GuidanceValidation,
	}
}

// toolError converts any error from the domain packages into a tool result.
func toolError(err error) *mcp.CallToolResult {
	if apiErr, ok := osm.AsAPIError(err); ok {
		return ErrorWithGuidance(apiErr)
	}
	switch {
	case errors.Is(err, osm.ErrNoResults):
		return ErrorWithGuidance(&osm.APIError{
			Service:  osm.ServiceNominatim,
			Message:  err.Error(),
			Guidance: osm.GuidanceNominatimAddressFormat,
		})
	case errors.Is(err, site.ErrNotFound):
		return ErrorWithGuidance(&osm.APIError{
			Service:  "site",
			Message:  err.Error(),
			Guidance: "Use list_site_analyses to find a valid analysis_id, or run analyze_site first.",
		})
	}
	return ErrorResponse(err.Error())
}
