// Package testutil provides utilities for testing.
package testutil

import (
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewTestLogger creates a new logger for testing
// If writer is nil, it will use io.Discard
func NewTestLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// DiscardLogger returns a logger that discards all output
func DiscardLogger() *slog.Logger {
	return NewTestLogger(nil)
}

// ToolText returns the first text content of a tool result, or "".
func ToolText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

// ToolRequest builds a CallToolRequest with the given arguments.
func ToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}
