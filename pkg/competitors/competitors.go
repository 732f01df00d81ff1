// Package competitors finds the fuel stations around a candidate site and
// summarises them into a competitor table.
package competitors

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/osm/queries"
	"github.com/NERVsystems/fuelsite/pkg/routing"
)

// Station is a competitor fuel station.
type Station struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Brand          string          `json:"brand"`
	Operator       string          `json:"operator,omitempty"`
	Location       geo.Location    `json:"location"`
	Address        string          `json:"address,omitempty"`
	Fuels          []string        `json:"fuels,omitempty"`
	Facilities     []string        `json:"facilities,omitempty"`
	OpeningHours   string          `json:"opening_hours,omitempty"`
	DistanceMeters float64         `json:"distance_m"`
	Road           *routing.Result `json:"road,omitempty"`
}

// facilityTags maps OSM tags to facility labels shown in the table.
var facilityTags = []struct {
	key, value, label string
}{
	{"shop", "", "shop"},
	{"car_wash", "yes", "car wash"},
	{"compressed_air", "yes", "air"},
	{"toilets", "yes", "toilets"},
	{"self_service", "yes", "self service"},
	{"automated", "yes", "automated"},
}

// StationFromElement converts an Overpass element into a Station relative to
// center. ok is false when the element has no usable coordinates.
func StationFromElement(el osm.Element, center geo.Location) (Station, bool) {
	loc, ok := el.Location()
	if !ok {
		return Station{}, false
	}

	s := Station{
		ID:             el.Key(),
		Name:           el.Tags["name"],
		Brand:          NormalizeBrand(el.Tags),
		Operator:       el.Tags["operator"],
		Location:       loc,
		Address:        formatAddress(el.Tags),
		OpeningHours:   el.Tags["opening_hours"],
		DistanceMeters: center.DistanceTo(loc),
	}

	for k, v := range el.Tags {
		if strings.HasPrefix(k, "fuel:") && v == "yes" {
			s.Fuels = append(s.Fuels, strings.TrimPrefix(k, "fuel:"))
		}
	}
	sort.Strings(s.Fuels)

	for _, f := range facilityTags {
		v, ok := el.Tags[f.key]
		if ok && (f.value == "" || v == f.value) && v != "no" {
			s.Facilities = append(s.Facilities, f.label)
		}
	}

	return s, true
}

func formatAddress(tags map[string]string) string {
	var parts []string
	street := strings.TrimSpace(tags["addr:housenumber"] + " " + tags["addr:street"])
	if street != "" {
		parts = append(parts, street)
	}
	for _, k := range []string{"addr:city", "addr:postcode"} {
		if v := tags[k]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// Finder discovers competitor stations.
type Finder struct {
	client *osm.Client
	chain  *routing.Chain
	logger *slog.Logger
}

// NewFinder creates a finder. chain may be nil when road distances are not needed.
func NewFinder(client *osm.Client, chain *routing.Chain) *Finder {
	return &Finder{
		client: client,
		chain:  chain,
		logger: client.Logger().With("component", "competitors"),
	}
}

// Find returns the fuel stations within radius of center, nearest first.
// Stations without coordinates are dropped and duplicates by OSM id removed.
func (f *Finder) Find(ctx context.Context, center geo.Location, radius float64) ([]Station, error) {
	if err := geo.ValidateCoords(center.Latitude, center.Longitude); err != nil {
		return nil, err
	}
	if err := geo.ValidateRadius(radius, geo.MaxSiteRadius); err != nil {
		return nil, err
	}

	resp, err := f.client.RunOverpass(ctx, queries.FuelStations(center.Latitude, center.Longitude, radius))
	if err != nil {
		return nil, fmt.Errorf("fuel station query failed: %w", err)
	}

	stations := FromOverpass(resp, center, radius)
	f.logger.Debug("fuel stations found", "elements", len(resp.Elements), "stations", len(stations))
	return stations, nil
}

// FromOverpass converts an Overpass answer into a sorted, deduplicated list.
// Overpass matches a way when any of its nodes is in range, so stations whose
// position lies further than radius from center are dropped.
func FromOverpass(resp *osm.OverpassResponse, center geo.Location, radius float64) []Station {
	seen := make(map[string]bool, len(resp.Elements))
	stations := make([]Station, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if seen[el.Key()] {
			continue
		}
		s, ok := StationFromElement(el, center)
		if !ok || s.DistanceMeters > radius {
			continue
		}
		seen[el.Key()] = true
		stations = append(stations, s)
	}

	sort.SliceStable(stations, func(i, j int) bool {
		if stations[i].DistanceMeters != stations[j].DistanceMeters {
			return stations[i].DistanceMeters < stations[j].DistanceMeters
		}
		return stations[i].ID < stations[j].ID
	})
	return stations
}

// WithRoadDistances fills in the road distance from center to every station.
// The input slice is not modified.
func (f *Finder) WithRoadDistances(ctx context.Context, center geo.Location, stations []Station) []Station {
	out := append([]Station(nil), stations...)
	if f.chain == nil || len(out) == 0 {
		return out
	}

	dests := make([]geo.Location, len(out))
	for i, s := range out {
		dests[i] = s.Location
	}

	results := f.chain.Batch(ctx, center, dests)
	for i := range out {
		r := results[i]
		out[i].Road = &r
	}
	return out
}
