package queries

import (
	"strings"
	"testing"
)

func TestFilterString(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"key only", HasKey("landuse"), `["landuse"]`},
		{"single value", Tag("amenity", "fuel"), `["amenity"="fuel"]`},
		{"multiple values sorted", Tag("natural", "wood", "water"), `["natural"~"^(water|wood)$"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFuelStations(t *testing.T) {
	q := FuelStations(51.5, -0.12, 3000)

	want := `[out:json][timeout:25];(node(around:3000.000000,51.500000,-0.120000)["amenity"="fuel"];` +
		`way(around:3000.000000,51.500000,-0.120000)["amenity"="fuel"];);out center;`
	if q != want {
		t.Errorf("FuelStations() =\n%s\nwant\n%s", q, want)
	}
}

func TestLandUse(t *testing.T) {
	q := LandUse(51.5, -0.12, 1000)

	if !strings.HasPrefix(q, "[out:json][timeout:60];(") {
		t.Errorf("unexpected header: %s", q)
	}
	if !strings.HasSuffix(q, ");out geom;") {
		t.Errorf("expected geometry output: %s", q)
	}
	if n := strings.Count(q, "way(around:"); n != len(LandUseKeys) {
		t.Errorf("expected %d way clauses, got %d", len(LandUseKeys), n)
	}
	if n := strings.Count(q, `["type"="multipolygon"]`); n != len(LandUseKeys) {
		t.Errorf("expected %d multipolygon clauses, got %d", len(LandUseKeys), n)
	}
}
