package site

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/competitors"
	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/landuse"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/population"
	"github.com/NERVsystems/fuelsite/pkg/routing"
	"github.com/NERVsystems/fuelsite/pkg/store"
	"github.com/NERVsystems/fuelsite/pkg/testutil"
)

var bristol = geo.Location{Latitude: 51.4545, Longitude: -2.5879}

type fakeGeocoder struct {
	reverseErr error
	calls      int32
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (geo.Place, error) {
	atomic.AddInt32(&f.calls, 1)
	if address == "nowhere" {
		return geo.Place{}, osm.ErrNoResults
	}
	return geo.Place{ID: "99", Name: "Whiteladies Road", Location: bristol}, nil
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (geo.Place, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.reverseErr != nil {
		return geo.Place{}, f.reverseErr
	}
	return geo.Place{Name: "Clifton, Bristol", Location: geo.Location{Latitude: lat + 0.001, Longitude: lon}}, nil
}

type fakeFinder struct {
	err    error
	routed int32
	calls  int32
}

func (f *fakeFinder) Find(ctx context.Context, center geo.Location, radius float64) ([]competitors.Station, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []competitors.Station{
		{ID: "node/1", Name: "Shell Clifton", Brand: "Shell", DistanceMeters: 400},
		{ID: "node/2", Name: "BP Redland", Brand: "BP", DistanceMeters: 900},
		{ID: "node/3", Brand: "Shell", DistanceMeters: 1500},
	}, nil
}

func (f *fakeFinder) WithRoadDistances(ctx context.Context, center geo.Location, stations []competitors.Station) []competitors.Station {
	atomic.AddInt32(&f.routed, int32(len(stations)))
	out := append([]competitors.Station(nil), stations...)
	for i := range out {
		r := routing.Estimate(center, out[i].Location, 0, 0)
		r.DistanceMeters = out[i].DistanceMeters * 1.3
		out[i].Road = &r
	}
	return out
}

type fakeLandUse struct {
	err   error
	calls int32
}

func (f *fakeLandUse) Analyze(ctx context.Context, center geo.Location, radius float64) (landuse.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return landuse.Result{}, f.err
	}
	features := []landuse.Feature{}
	return landuse.Breakdown(center, radius, features, 10), nil
}

type fakePopulation struct {
	err   error
	calls int32
}

func (f *fakePopulation) Total(ctx context.Context, center geo.Location, radius float64) (population.Estimate, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return population.Estimate{}, f.err
	}
	return population.Estimate{Total: 45000, Year: 2020, AreaKm2: 28.3, DensityPerKm2: 1590}, nil
}

type fixture struct {
	svc        *Service
	geocoder   *fakeGeocoder
	finder     *fakeFinder
	landUse    *fakeLandUse
	population *fakePopulation
	store      *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "site.db"), testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		geocoder:   &fakeGeocoder{},
		finder:     &fakeFinder{},
		landUse:    &fakeLandUse{},
		population: &fakePopulation{},
		store:      st,
	}
	f.svc = NewService(Deps{
		Geocoder:    f.geocoder,
		Competitors: f.finder,
		LandUse:     f.landUse,
		Population:  f.population,
		Store:       st,
		Logger:      testutil.DiscardLogger(),
	})
	f.svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(f.svc.Close)
	return f
}

func TestAnalyzeByAddress(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Analyze(context.Background(), Request{
		Address:           "Whiteladies Road, Bristol",
		RadiusMeters:      3000,
		RoadDistances:     true,
		MaxRoutedStations: 2,
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if a.ID == "" || a.Label != "Whiteladies Road" {
		t.Errorf("unexpected analysis header %+v", a)
	}
	if a.Site.Location != bristol {
		t.Errorf("Site.Location = %+v, want %+v", a.Site.Location, bristol)
	}
	if a.Competitors.Summary.Count != 3 || len(a.Competitors.Stations) != 3 {
		t.Errorf("unexpected competitor section %+v", a.Competitors)
	}
	if got := atomic.LoadInt32(&f.finder.routed); got != 2 {
		t.Errorf("routed %d stations, want 2", got)
	}
	if a.Competitors.Stations[1].Road == nil || a.Competitors.Stations[2].Road != nil {
		t.Error("only the nearest stations should carry road distances")
	}
	if a.Population.Estimate == nil || a.Population.Estimate.Total != 45000 {
		t.Errorf("unexpected population section %+v", a.Population)
	}
	if a.LandUse.Result == nil || a.LandUse.Result.Dominant != landuse.Unclassified {
		t.Errorf("unexpected land use section %+v", a.LandUse)
	}
	if len(a.SectionErrors()) != 0 {
		t.Errorf("unexpected section errors %v", a.SectionErrors())
	}

	// persisted
	if _, err := f.store.Get(context.Background(), a.ID); err != nil {
		t.Errorf("analysis not persisted: %v", err)
	}
}

func TestAnalyzeByLocation(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Analyze(context.Background(), Request{Location: &bristol, Label: "Candidate A"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if a.Label != "Candidate A" {
		t.Errorf("Label = %q, want Candidate A", a.Label)
	}
	if a.Site.Name != "Clifton, Bristol" {
		t.Errorf("Site.Name = %q", a.Site.Name)
	}
	// caller coordinates win over the reverse geocoded point
	if a.Site.Location != bristol {
		t.Errorf("Site.Location = %+v, want %+v", a.Site.Location, bristol)
	}
	if a.RadiusMeters != DefaultRadius {
		t.Errorf("RadiusMeters = %f, want default %f", a.RadiusMeters, DefaultRadius)
	}
	if atomic.LoadInt32(&f.finder.routed) != 0 {
		t.Error("road distances requested without RoadDistances")
	}
}

func TestAnalyzeReverseGeocodeFailure(t *testing.T) {
	f := newFixture(t)
	f.geocoder.reverseErr = errors.New("nominatim down")

	a, err := f.svc.Analyze(context.Background(), Request{Location: &bristol, RadiusMeters: 1000})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if a.Label != "51.45450, -2.58790" {
		t.Errorf("Label = %q, want coordinate label", a.Label)
	}
}

func TestAnalyzeSectionErrors(t *testing.T) {
	f := newFixture(t)
	f.finder.err = errors.New("overpass busy")
	f.population.err = errors.New("worldpop timeout")

	a, err := f.svc.Analyze(context.Background(), Request{Location: &bristol, RadiusMeters: 2000})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	errs := a.SectionErrors()
	if errs["competitors"] != "overpass busy" || errs["population"] != "worldpop timeout" {
		t.Errorf("unexpected section errors %v", errs)
	}
	if _, ok := errs["land_use"]; ok {
		t.Error("land use should have succeeded")
	}
	if a.Competitors.Stations == nil || a.Competitors.Summary.Count != 0 {
		t.Errorf("failed competitor section should be empty, got %+v", a.Competitors)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	f := newFixture(t)
	bad := geo.Location{Latitude: 95, Longitude: 0}

	tests := []struct {
		name string
		req  Request
	}{
		{"no site", Request{RadiusMeters: 1000}},
		{"radius too large", Request{Location: &bristol, RadiusMeters: 10001}},
		{"negative radius", Request{Location: &bristol, RadiusMeters: -5}},
		{"invalid coordinates", Request{Location: &bad}},
		{"address not found", Request{Address: "nowhere"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Analyze(context.Background(), tt.req); err == nil {
				t.Error("expected error")
			}
		})
	}

	if atomic.LoadInt32(&f.finder.calls) != 0 {
		t.Error("no section should run for invalid requests")
	}
	entries, _ := f.svc.List(context.Background(), 10)
	if len(entries) != 0 {
		t.Errorf("invalid requests were stored: %+v", entries)
	}
}

func TestGetFromStoreAfterRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Analyze(ctx, Request{Location: &bristol, RadiusMeters: 1500})
	if err != nil {
		t.Fatal(err)
	}

	// a fresh service shares only the store
	fresh := NewService(Deps{Store: f.store, Logger: testutil.DiscardLogger()})
	defer fresh.Close()

	got, err := fresh.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != a.ID || got.Competitors.Summary.Count != 3 || got.Population.Estimate.Total != 45000 {
		t.Errorf("round tripped analysis differs: %+v", got)
	}

	if _, err := fresh.Get(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Analyze(ctx, Request{Location: &bristol})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := f.svc.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != a.ID {
		t.Errorf("List() = %+v", entries)
	}

	if err := f.svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.svc.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestReportUsesStoredDataOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Analyze(ctx, Request{Address: "Whiteladies Road, Bristol", RoadDistances: true})
	if err != nil {
		t.Fatal(err)
	}

	before := atomic.LoadInt32(&f.geocoder.calls) + atomic.LoadInt32(&f.finder.calls) +
		atomic.LoadInt32(&f.landUse.calls) + atomic.LoadInt32(&f.population.calls)

	r, err := f.svc.Report(ctx, a.ID)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	after := atomic.LoadInt32(&f.geocoder.calls) + atomic.LoadInt32(&f.finder.calls) +
		atomic.LoadInt32(&f.landUse.calls) + atomic.LoadInt32(&f.population.calls)
	if before != after {
		t.Errorf("Report() made %d upstream calls", after-before)
	}

	if r.AnalysisID != a.ID || len(r.Competitors) != 3 {
		t.Errorf("unexpected report %+v", r)
	}
	if r.Competitors[0].Rank != 1 || r.Competitors[0].DistanceKm != 0.4 || r.Competitors[0].RoadDistanceKm != 0.52 {
		t.Errorf("unexpected first row %+v", r.Competitors[0])
	}
	if len(r.Brands) != 2 || r.Brands[0].Brand != "Shell" {
		t.Errorf("unexpected brand table %+v", r.Brands)
	}

	for _, want := range []string{
		"Site analysis: Whiteladies Road",
		"Competitor stations",
		"Population",
		"45,000 (2020)",
		"Shell Clifton",
		"BRAND SHARE",
		"LAND USE",
		"unclassified",
	} {
		if !strings.Contains(r.Text, want) {
			t.Errorf("report text missing %q:\n%s", want, r.Text)
		}
	}

	if _, err := f.svc.Report(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report(missing) error = %v, want ErrNotFound", err)
	}
}

func TestBuildReportNotes(t *testing.T) {
	a := &Analysis{
		ID:    "x",
		Label: "Test",
		Competitors: CompetitorSection{
			Summary: competitors.Summary{EstimatedRoadDistances: 2},
		},
		Population: PopulationSection{Error: "worldpop timeout"},
	}

	r := BuildReport(a, time.Now())
	joined := strings.Join(r.Notes, "\n")
	if !strings.Contains(joined, "2 road distances are straight-line estimates") {
		t.Errorf("missing estimate note: %v", r.Notes)
	}
	if !strings.Contains(joined, "population unavailable: worldpop timeout") {
		t.Errorf("missing section error note: %v", r.Notes)
	}
	if r.Brands == nil || r.LandUse == nil || r.Competitors == nil {
		t.Error("report tables should be empty slices, not nil")
	}
}
