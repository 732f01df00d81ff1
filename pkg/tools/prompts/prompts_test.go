package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	if result == nil || len(result.Messages) == 0 {
		t.Fatal("empty prompt result")
	}
	text, ok := result.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Messages[0].Content)
	}
	return text.Text
}

func TestStaticPrompts(t *testing.T) {
	tests := []struct {
		name    string
		handler func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
		want    string
	}{
		{"workflow", SiteAnalysisPromptHandler, "analyze_site"},
		{"address format", AddressFormatPromptHandler, "parentheses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), mcp.GetPromptRequest{})
			if err != nil {
				t.Fatalf("handler error = %v", err)
			}
			if !strings.Contains(promptText(t, result), tt.want) {
				t.Errorf("prompt does not mention %q", tt.want)
			}
		})
	}
}

func TestCompareSitesPrompt(t *testing.T) {
	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"sites": "Bristol; ; Bath ", "radius": "5000"}

	result, err := CompareSitesPromptHandler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	text := promptText(t, result)
	for _, want := range []string{"these 2 candidate sites", "5000 m", "1. Bristol", "2. Bath"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q:\n%s", want, text)
		}
	}

	req.Params.Arguments = map[string]string{"sites": " ; "}
	if _, err := CompareSitesPromptHandler(context.Background(), req); err == nil {
		t.Error("expected error without sites")
	}
}
