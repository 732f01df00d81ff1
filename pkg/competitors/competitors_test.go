package competitors

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/routing"
	"github.com/NERVsystems/fuelsite/pkg/testutil"
)

var site = geo.Location{Latitude: 51.4545, Longitude: -2.5879}

func TestNormalizeBrand(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want string
	}{
		{"brand tag", map[string]string{"brand": "Shell", "name": "Shell Filton"}, "Shell"},
		{"sub brand folded", map[string]string{"brand": "Shell Express"}, "Shell"},
		{"alias exact", map[string]string{"brand": "BP Connect"}, "BP"},
		{"case and spacing", map[string]string{"brand": "  tesco   EXTRA "}, "Tesco"},
		{"prefix match", map[string]string{"name": "Esso Bristol Road"}, "Esso"},
		{"operator fallback", map[string]string{"operator": "Texaco"}, "Texaco"},
		{"total rename", map[string]string{"brand": "Total"}, "TotalEnergies"},
		{"unknown kept", map[string]string{"name": "Smith's Garage"}, "Smith's Garage"},
		{"word boundary", map[string]string{"name": "Bpx Fuels"}, "Bpx Fuels"},
		{"no tags", map[string]string{}, Unbranded},
		{"blank brand", map[string]string{"brand": "  ", "operator": "Gulf"}, "Gulf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBrand(tt.tags); got != tt.want {
				t.Errorf("NormalizeBrand(%v) = %q, want %q", tt.tags, got, tt.want)
			}
		})
	}
}

func overpassFixture() osm.OverpassResponse {
	return osm.OverpassResponse{Elements: []osm.Element{
		{
			ID: 2, Type: "way",
			Center: &osm.LatLon{Lat: 51.4600, Lon: -2.5879},
			Tags: map[string]string{
				"amenity": "fuel", "brand": "BP", "name": "BP Whiteladies",
				"addr:street": "Whiteladies Road", "addr:housenumber": "12", "addr:city": "Bristol",
				"fuel:diesel": "yes", "fuel:octane_95": "yes", "fuel:lpg": "no",
				"shop": "convenience", "car_wash": "no",
			},
		},
		{
			ID: 1, Type: "node", Lat: 51.4550, Lon: -2.5879,
			Tags: map[string]string{"amenity": "fuel", "brand": "Shell", "opening_hours": "24/7", "compressed_air": "yes"},
		},
		// duplicate element
		{
			ID: 1, Type: "node", Lat: 51.4550, Lon: -2.5879,
			Tags: map[string]string{"amenity": "fuel", "brand": "Shell"},
		},
		// no coordinates
		{ID: 3, Type: "way", Tags: map[string]string{"amenity": "fuel"}},
		{
			ID: 4, Type: "node", Lat: 51.4700, Lon: -2.5879,
			Tags: map[string]string{"amenity": "fuel", "name": "Shell Express"},
		},
	}}
}

func TestFromOverpass(t *testing.T) {
	resp := overpassFixture()
	stations := FromOverpass(&resp, site, 3000)

	if len(stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(stations))
	}

	wantOrder := []string{"node/1", "way/2", "node/4"}
	for i, id := range wantOrder {
		if stations[i].ID != id {
			t.Errorf("stations[%d] = %s, want %s", i, stations[i].ID, id)
		}
	}
	for i := 1; i < len(stations); i++ {
		if stations[i].DistanceMeters < stations[i-1].DistanceMeters {
			t.Error("stations are not sorted by distance")
		}
	}

	bp := stations[1]
	if bp.Address != "12 Whiteladies Road, Bristol" {
		t.Errorf("Address = %q", bp.Address)
	}
	if strings.Join(bp.Fuels, ",") != "diesel,octane_95" {
		t.Errorf("Fuels = %v", bp.Fuels)
	}
	if strings.Join(bp.Facilities, ",") != "shop" {
		t.Errorf("Facilities = %v", bp.Facilities)
	}

	shell := stations[0]
	if shell.OpeningHours != "24/7" || strings.Join(shell.Facilities, ",") != "air" {
		t.Errorf("unexpected station %+v", shell)
	}
	if math.Abs(shell.DistanceMeters-55.6) > 1 {
		t.Errorf("DistanceMeters = %f, want about 55.6", shell.DistanceMeters)
	}
}

func TestFromOverpassDropsStationsOutsideRadius(t *testing.T) {
	// the way has a node inside the circle but its centre is about 3336 m away
	resp := osm.OverpassResponse{Elements: []osm.Element{
		{ID: 1, Type: "node", Lat: 51.4550, Lon: -2.5879, Tags: map[string]string{"amenity": "fuel"}},
		{ID: 9, Type: "way", Center: &osm.LatLon{Lat: 51.4845, Lon: -2.5879}, Tags: map[string]string{"amenity": "fuel", "brand": "Esso"}},
	}}

	tests := []struct {
		name   string
		radius float64
		want   []string
	}{
		{"centre outside", 3000, []string{"node/1"}},
		{"centre inside", 3500, []string{"node/1", "way/9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stations := FromOverpass(&resp, site, tt.radius)
			if len(stations) != len(tt.want) {
				t.Fatalf("got %d stations, want %d", len(stations), len(tt.want))
			}
			for i, s := range stations {
				if s.ID != tt.want[i] {
					t.Errorf("stations[%d] = %s, want %s", i, s.ID, tt.want[i])
				}
				if s.DistanceMeters > tt.radius {
					t.Errorf("station %s at %.0f m is outside %.0f m", s.ID, s.DistanceMeters, tt.radius)
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	resp := overpassFixture()
	stations := FromOverpass(&resp, site, 3000)
	s := Summarize(stations)

	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if s.Nearest == nil || s.Nearest.ID != "node/1" {
		t.Errorf("Nearest = %+v", s.Nearest)
	}
	if len(s.Brands) != 2 || s.Brands[0].Brand != "Shell" || s.Brands[0].Count != 2 {
		t.Fatalf("unexpected brand table %+v", s.Brands)
	}
	if s.Brands[0].Percent != 66.7 || s.Brands[1].Percent != 33.3 {
		t.Errorf("unexpected percentages %+v", s.Brands)
	}
	if s.AverageRoadDistanceMeters != 0 {
		t.Error("no road distances were computed")
	}

	empty := Summarize(nil)
	if empty.Count != 0 || empty.Nearest != nil || empty.Brands == nil {
		t.Errorf("unexpected empty summary %+v", empty)
	}
}

func TestFinder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(r.PostForm.Get("data"), `["amenity"="fuel"]`) {
			t.Errorf("unexpected query %s", r.PostForm.Get("data"))
		}
		json.NewEncoder(w).Encode(overpassFixture())
	}))
	defer srv.Close()

	client := osm.NewClient(osm.Options{
		Endpoints:  osm.Endpoints{Overpass: srv.URL},
		RateLimits: osm.UnlimitedRateLimits(),
		Logger:     testutil.DiscardLogger(),
	})

	// no providers: every road distance is an estimate
	chain := routing.NewChain(routing.Options{Logger: testutil.DiscardLogger()})
	defer chain.Close()
	finder := NewFinder(client, chain)

	stations, err := finder.Find(context.Background(), site, 3000)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(stations))
	}

	withRoad := finder.WithRoadDistances(context.Background(), site, stations)
	for i, s := range withRoad {
		if s.Road == nil || !s.Road.Estimated {
			t.Fatalf("station %d missing estimated road distance", i)
		}
		if s.Road.DistanceMeters < s.DistanceMeters {
			t.Errorf("road distance %f shorter than straight line %f", s.Road.DistanceMeters, s.DistanceMeters)
		}
		if stations[i].Road != nil {
			t.Error("input slice was modified")
		}
	}

	summary := Summarize(withRoad)
	if summary.EstimatedRoadDistances != 3 || summary.AverageRoadDistanceMeters <= summary.AverageDistanceMeters {
		t.Errorf("unexpected summary %+v", summary)
	}

	if _, err := finder.Find(context.Background(), site, 50000); err == nil {
		t.Error("expected error for radius above limit")
	}
}
