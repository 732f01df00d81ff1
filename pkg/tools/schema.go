package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorResponse is used for consistent error reporting
func ErrorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// jsonResult marshals v into a text result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResponse(fmt.Sprintf("Failed to generate result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ParseArray extracts an array parameter from a CallToolRequest and decodes
// it into out.
func ParseArray(req mcp.CallToolRequest, paramName string, out any) error {
	param, ok := req.Params.Arguments[paramName]
	if !ok {
		return fmt.Errorf("parameter %s not found", paramName)
	}

	// round trip through JSON so both []any and typed slices decode
	data, err := json.Marshal(param)
	if err != nil {
		return fmt.Errorf("failed to marshal parameter %s: %w", paramName, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", paramName, err)
	}
	return nil
}
