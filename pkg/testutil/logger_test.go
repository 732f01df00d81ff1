package testutil

import (
	"bytes"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestNewTestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTestLogger(buf)
	if logger == nil {
		t.Fatal("NewTestLogger returned nil")
	}

	logger.Debug("test message", "key", "value")
	if buf.Len() == 0 {
		t.Error("Logger did not write debug output to buffer")
	}

	if NewTestLogger(nil) == nil {
		t.Error("NewTestLogger returned nil with nil writer")
	}
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	if logger == nil {
		t.Fatal("DiscardLogger returned nil")
	}
	logger.Error("error message", "key", "value")
}

func TestToolText(t *testing.T) {
	if got := ToolText(nil); got != "" {
		t.Errorf("ToolText(nil) = %q", got)
	}
	if got := ToolText(mcp.NewToolResultText(`{"ok":true}`)); got != `{"ok":true}` {
		t.Errorf("ToolText() = %q", got)
	}
	res := mcp.NewToolResultError("boom")
	if got := ToolText(res); got != "boom" || !res.IsError {
		t.Errorf("ToolText() = %q, IsError = %v", got, res.IsError)
	}
}

func TestToolRequest(t *testing.T) {
	req := ToolRequest("analyze_site", map[string]any{"radius": 2000.0})
	if req.Params.Name != "analyze_site" {
		t.Errorf("Name = %q", req.Params.Name)
	}
	if got := mcp.ParseFloat64(req, "radius", 0); got != 2000 {
		t.Errorf("radius = %f, want 2000", got)
	}
}
