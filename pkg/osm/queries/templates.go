// Package queries provides utilities for building OpenStreetMap API queries.
package queries

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultTimeout is the Overpass server-side timeout in seconds.
const DefaultTimeout = 25

// Filter is a single tag condition.
type Filter struct {
	Key    string
	Values []string // empty means "key present"
}

// Tag matches key=value, or any of several values.
func Tag(key string, values ...string) Filter {
	return Filter{Key: key, Values: values}
}

// HasKey matches elements carrying key with any value.
func HasKey(key string) Filter {
	return Filter{Key: key}
}

func (f Filter) String() string {
	switch len(f.Values) {
	case 0:
		return fmt.Sprintf("[%q]", f.Key)
	case 1:
		return fmt.Sprintf("[%q=%q]", f.Key, f.Values[0])
	default:
		vals := append([]string(nil), f.Values...)
		sort.Strings(vals)
		return fmt.Sprintf("[%q~%q]", f.Key, "^("+strings.Join(vals, "|")+")$")
	}
}

// OverpassBuilder provides a fluent interface for building Overpass API queries.
type OverpassBuilder struct {
	timeout  int
	elements []string
}

// NewOverpassBuilder creates a new Overpass query builder requesting JSON output.
func NewOverpassBuilder() *OverpassBuilder {
	return &OverpassBuilder{timeout: DefaultTimeout}
}

// WithTimeout sets the server-side timeout in seconds.
func (b *OverpassBuilder) WithTimeout(seconds int) *OverpassBuilder {
	if seconds > 0 {
		b.timeout = seconds
	}
	return b
}

// Around adds an element query of the given type ("node", "way",
// "relation", "nwr") within radius meters of a point.
func (b *OverpassBuilder) Around(elementType string, lat, lon, radius float64, filters ...Filter) *OverpassBuilder {
	b.add(fmt.Sprintf("%s(around:%f,%f,%f)", elementType, radius, lat, lon), filters)
	return b
}

func (b *OverpassBuilder) add(base string, filters []Filter) {
	var q strings.Builder
	q.WriteString(base)
	for _, f := range filters {
		q.WriteString(f.String())
	}
	q.WriteString(";")
	b.elements = append(b.elements, q.String())
}

// Build returns the complete query using the given output mode
// ("body", "center", "geom" ...).
func (b *OverpassBuilder) Build(output string) string {
	if output == "" {
		output = "body"
	}
	var q strings.Builder
	fmt.Fprintf(&q, "[out:json][timeout:%d];(", b.timeout)
	for _, e := range b.elements {
		q.WriteString(e)
	}
	fmt.Fprintf(&q, ");out %s;", output)
	return q.String()
}

// FuelStations finds fuel stations mapped as nodes or building outlines.
func FuelStations(lat, lon, radius float64) string {
	return NewOverpassBuilder().
		Around("node", lat, lon, radius, Tag("amenity", "fuel")).
		Around("way", lat, lon, radius, Tag("amenity", "fuel")).
		Build("center")
}

// LandUseKeys lists the tag keys whose polygons are tallied for land use.
var LandUseKeys = []Filter{
	HasKey("landuse"),
	Tag("natural", "wood", "water", "wetland", "scrub", "grassland", "heath", "beach"),
	Tag("leisure", "park", "golf_course", "nature_reserve", "pitch"),
	Tag("amenity", "parking"),
}

// LandUse finds land-use polygons with their full geometry.
func LandUse(lat, lon, radius float64) string {
	b := NewOverpassBuilder().WithTimeout(60)
	for _, f := range LandUseKeys {
		b.Around("way", lat, lon, radius, f)
		b.Around("relation", lat, lon, radius, f, Tag("type", "multipolygon"))
	}
	return b.Build("geom")
}
