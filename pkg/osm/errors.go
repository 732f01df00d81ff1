package osm

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error that occurred while communicating with
// an external API service, with information to help users recover.
type APIError struct {
	Service     string // The API service name (e.g., "nominatim", "overpass")
	StatusCode  int    // HTTP status code, 0 for transport failures
	Message     string // Error message
	Recoverable bool   // Whether the error can be recovered from
	Guidance    string // Guidance for users on how to recover
	Err         error  // Underlying transport error, if any
}

// Error implements the error interface and provides a formatted error message.
func (e *APIError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s API error (%d): %s. %s", e.Service, e.StatusCode, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Common error guidance messages
const (
	GuidanceNominatimAddressFormat = "Try using a more standard address format or provide city and country."
	GuidanceNominatimRateLimit     = "Please try again in a few seconds."

	GuidanceOverpassTimeout   = "Consider reducing the catchment radius."
	GuidanceOverpassRateLimit = "The Overpass API is currently experiencing high load. Please try again in a minute."
	GuidanceOverpassSyntax    = "There's an issue with the query format."
	GuidanceOverpassMemory    = "The query requires too much memory. Try reducing the catchment radius."

	GuidanceRoutingRateLimit = "The routing service is experiencing high load. Distances fall back to estimates."
	GuidanceRoutingNoRoute   = "No route could be found between the specified points. Try locations with accessible roads."
	GuidanceRoutingAuth      = "Check the routing API key in the configuration."

	GuidanceWorldPopPending = "The population statistics task did not finish in time. Try again shortly."

	GuidanceGeneral      = "Please try again later or modify your request parameters."
	GuidanceNetworkError = "Check your internet connection and try again."
	GuidanceDataError    = "The data received was incomplete or malformed. Try different search parameters."
)

// NewAPIError creates a new APIError with appropriate guidance based on status code.
func NewAPIError(service string, statusCode int, message, guidance string) *APIError {
	if guidance == "" {
		guidance = guidanceFor(service, statusCode)
	}

	return &APIError{
		Service:     service,
		StatusCode:  statusCode,
		Message:     message,
		Recoverable: statusCode != http.StatusBadRequest,
		Guidance:    guidance,
	}
}

func guidanceFor(service string, statusCode int) string {
	switch service {
	case ServiceOverpass:
		switch statusCode {
		case http.StatusTooManyRequests:
			return GuidanceOverpassRateLimit
		case http.StatusGatewayTimeout:
			return GuidanceOverpassTimeout
		case http.StatusBadRequest:
			return GuidanceOverpassSyntax
		}
	case ServiceNominatim:
		if statusCode == http.StatusTooManyRequests {
			return GuidanceNominatimRateLimit
		}
	case ServiceORS, ServiceGraphHopper, ServiceOSRM:
		switch statusCode {
		case http.StatusTooManyRequests:
			return GuidanceRoutingRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			return GuidanceRoutingAuth
		}
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Please try again in a few moments."
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return "The request timed out. Try reducing the search area or simplifying the query."
	case http.StatusBadRequest:
		return "The request was invalid. Check your parameters and try again."
	case http.StatusInternalServerError:
		return "The server encountered an error. This is likely temporary, please try again later."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return GuidanceGeneral
	}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(service string, err error) *APIError {
	return &APIError{
		Service:     service,
		Message:     err.Error(),
		Recoverable: true,
		Guidance:    GuidanceNetworkError,
		Err:         err,
	}
}

// NewDataError reports a malformed upstream payload.
func NewDataError(service string, err error) *APIError {
	return &APIError{
		Service:     service,
		StatusCode:  http.StatusOK,
		Message:     err.Error(),
		Recoverable: true,
		Guidance:    GuidanceDataError,
		Err:         err,
	}
}

// AsAPIError extracts an APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
