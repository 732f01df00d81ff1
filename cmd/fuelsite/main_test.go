package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NERVsystems/fuelsite/pkg/config"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/site"
	"github.com/spf13/pflag"
)

func TestGenerateClientConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name     string
		path     string
		existing string
		wantErr  bool
	}{
		{name: "valid path", path: "config.json"},
		{name: "nested path", path: filepath.Join("client", "config.json")},
		{name: "empty path", path: "", wantErr: true},
		{name: "non-json extension", path: "config.txt", wantErr: true},
		{name: "path with ..", path: filepath.Join("..", "config.json"), wantErr: true},
		{
			name:     "merge with existing",
			path:     "merge.json",
			existing: `{"existing_key":"existing_value","mcpServers":{"other":{"command":"other"}}}`,
		},
		{name: "invalid existing json", path: "broken.json", existing: `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.existing != "" {
				if err := os.WriteFile(tt.path, []byte(tt.existing), 0o644); err != nil {
					t.Fatalf("Failed to write existing config: %v", err)
				}
			}

			err := generateClientConfig(tt.path, "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("generateClientConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			info, err := os.Stat(tt.path)
			if err != nil {
				t.Fatalf("Failed to stat config file: %v", err)
			}
			if mode := info.Mode().Perm(); mode != 0o600 {
				t.Errorf("Config file has wrong permissions: %v, want 0600", mode)
			}

			data, err := os.ReadFile(tt.path)
			if err != nil {
				t.Fatalf("Failed to read config file: %v", err)
			}
			var cfg map[string]any
			if err := json.Unmarshal(data, &cfg); err != nil {
				t.Fatalf("Failed to parse config JSON: %v", err)
			}

			servers, ok := cfg["mcpServers"].(map[string]any)
			if !ok {
				t.Fatal("Config missing 'mcpServers' section")
			}
			entry, ok := servers[clientServerKey].(map[string]any)
			if !ok {
				t.Fatalf("Config missing %q server", clientServerKey)
			}
			if args, _ := entry["args"].([]any); len(args) != 1 || args[0] != "serve" {
				t.Errorf("args = %v, want [serve]", entry["args"])
			}

			if tt.name == "merge with existing" {
				if cfg["existing_key"] != "existing_value" {
					t.Error("Merge failed to preserve existing content")
				}
				if _, ok := servers["other"]; !ok {
					t.Error("Merge dropped another server")
				}
			}
		})
	}
}

func TestGenerateClientConfigWithConfigPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "client.json")
	cfgPath := filepath.Join(dir, "fuelsite.yaml")

	if err := generateClientConfig(out, cfgPath); err != nil {
		t.Fatalf("generateClientConfig() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"--config"`) || !strings.Contains(string(data), "fuelsite.yaml") {
		t.Errorf("config path not passed to server:\n%s", data)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuelsite.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig() error = %v", err)
	}
	if _, err := config.Load(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("generated config does not load: %v", err)
	}

	if err := writeDefaultConfig(filepath.Join(dir, "fuelsite.json")); err == nil {
		t.Error("expected error for non-yaml extension")
	}
}

// execute runs the root command and returns what it printed on stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "fuelsite version") {
		t.Errorf("unexpected version output %q", out)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json error = %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil || info["version"] == "" {
		t.Errorf("unexpected version JSON %q (%v)", out, err)
	}
}

// writeTestConfig points every upstream at a fake server and the store at a
// temporary database. edit, when not nil, adjusts the rest.
func writeTestConfig(t *testing.T, edit func(*config.Config)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			fmt.Fprint(w, `[{"place_id":7,"display_name":"Gloucester Road, Bristol","lat":"51.4700","lon":"-2.5900"}]`)
		case "/interpreter":
			fmt.Fprint(w, `{"elements":[]}`)
		case "/v1/services/stats":
			fmt.Fprint(w, `{"status":"finished","error":false,"data":{"total_population":1200}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Endpoints = osm.Endpoints{
		Nominatim: srv.URL,
		Overpass:  srv.URL + "/interpreter",
		WorldPop:  srv.URL,
	}
	cfg.RateLimits = osm.UnlimitedRateLimits()
	cfg.Store.Path = filepath.Join(dir, "fuelsite.db")
	if edit != nil {
		edit(&cfg)
	}

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "fuelsite.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeReportListDelete(t *testing.T) {
	cfgPath := writeTestConfig(t, nil)
	global := []string{"--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "none.env")}

	out, err := execute(t, append([]string{"analyze", "--address", "Gloucester Road, Bristol", "--label", "Gloucester Rd", "--json"}, global...)...)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	var report site.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("analyze output is not a JSON report: %v\n%s", err, out)
	}
	if report.AnalysisID == "" || report.Title != "Site analysis: Gloucester Rd" {
		t.Fatalf("unexpected report %+v", report)
	}

	out, err = execute(t, append([]string{"report", report.AnalysisID}, global...)...)
	if err != nil {
		t.Fatalf("report error = %v", err)
	}
	if !strings.Contains(out, "1,200 (2020)") {
		t.Errorf("text report missing population:\n%s", out)
	}

	out, err = execute(t, append([]string{"list"}, global...)...)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, report.AnalysisID) || !strings.Contains(out, "Gloucester Rd") || !strings.Contains(out, "3,000 m") {
		t.Errorf("list output missing analysis:\n%s", out)
	}

	if _, err := execute(t, append([]string{"delete", report.AnalysisID}, global...)...); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if _, err := execute(t, append([]string{"report", report.AnalysisID}, global...)...); err == nil {
		t.Error("expected error for deleted analysis")
	}

	out, err = execute(t, append([]string{"list"}, global...)...)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "no analyses stored") {
		t.Errorf("unexpected list output %q", out)
	}
}

func TestAnalyzeFlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no site", []string{"analyze"}, "either --address"},
		{"latitude only", []string{"analyze", "--lat", "51.5"}, "together"},
		{"unexpected argument", []string{"analyze", "Bristol"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestAnalyzeUsesConfiguredDefaults(t *testing.T) {
	cfgPath := writeTestConfig(t, func(c *config.Config) {
		c.Analysis.DefaultRadius = 1500
		c.Analysis.MaxRoutedStations = 4
	})
	global := []string{"--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "none.env")}

	if _, err := execute(t, append([]string{"analyze", "--address", "Gloucester Road, Bristol", "--label", "From config"}, global...)...); err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if _, err := execute(t, append([]string{"analyze", "--address", "Gloucester Road, Bristol", "--label", "From flag", "--radius", "2500"}, global...)...); err != nil {
		t.Fatalf("analyze --radius error = %v", err)
	}

	out, err := execute(t, append([]string{"list"}, global...)...)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	for _, want := range []string{"1,500 m", "2,500 m"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "3,000 m") {
		t.Errorf("built-in radius used instead of the configured one:\n%s", out)
	}
}

func TestApplyAnalysisDefaults(t *testing.T) {
	cfg := config.AnalysisConfig{DefaultRadius: 1500, MaxRoutedStations: 4}

	tests := []struct {
		name       string
		args       []string
		wantRadius float64
		wantRouted int
		wantErr    bool
	}{
		{"config values", nil, 1500, 4, false},
		{"flags win", []string{"--radius", "800", "--max-routed", "2"}, 800, 2, false},
		{"zero routed rejected", []string{"--max-routed", "0"}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req site.Request
			flags := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
			flags.Float64Var(&req.RadiusMeters, "radius", 0, "")
			flags.IntVar(&req.MaxRoutedStations, "max-routed", 0, "")
			if err := flags.Parse(tt.args); err != nil {
				t.Fatal(err)
			}

			err := applyAnalysisDefaults(flags, &req, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyAnalysisDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.RadiusMeters != tt.wantRadius || req.MaxRoutedStations != tt.wantRouted {
				t.Errorf("got radius %v routed %d, want %v and %d",
					req.RadiusMeters, req.MaxRoutedStations, tt.wantRadius, tt.wantRouted)
			}
		})
	}
}
