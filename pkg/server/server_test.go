package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/NERVsystems/fuelsite/pkg/config"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/testutil"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "nested", "fuelsite.db")
	return cfg
}

func TestNewServer(t *testing.T) {
	s, err := NewServer(context.Background(), testConfig(t), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer s.Close()

	if len(s.Tools()) != 10 {
		t.Errorf("expected 10 tools, got %d", len(s.Tools()))
	}
}

func TestNewServicesRouting(t *testing.T) {
	tests := []struct {
		name string
		ors  string
		gh   string
		osrm bool
		want []string
	}{
		{name: "no providers", want: []string{}},
		{name: "osrm only", osrm: true, want: []string{osm.ServiceOSRM}},
		{name: "all", ors: "k1", gh: "k2", osrm: true, want: []string{osm.ServiceORS, osm.ServiceGraphHopper, osm.ServiceOSRM}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Routing.ORSAPIKey = tt.ors
			cfg.Routing.GraphHopperAPIKey = tt.gh
			cfg.Routing.EnableOSRM = tt.osrm

			svc, err := NewServices(context.Background(), cfg, testutil.DiscardLogger())
			if err != nil {
				t.Fatalf("NewServices() error = %v", err)
			}
			defer svc.Close()

			got := svc.Routing.Providers()
			if len(got) != len(tt.want) {
				t.Fatalf("providers = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("providers = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNewServerBadStorePath(t *testing.T) {
	cfg := config.Default()
	// a regular file cannot be a parent directory
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Store.Path = filepath.Join(file, "fuelsite.db")

	if _, err := NewServer(context.Background(), cfg, testutil.DiscardLogger()); err == nil {
		t.Error("expected error for unusable store path")
	}
}
