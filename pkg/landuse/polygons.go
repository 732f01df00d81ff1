package landuse

import (
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Feature is a classified land-use area.
type Feature struct {
	ID       string
	Category Category
	Geometry orb.MultiPolygon
	Bound    orb.Bound
}

// NewFeature creates a feature and precomputes its bounding box.
func NewFeature(id string, category Category, geometry orb.MultiPolygon) Feature {
	return Feature{
		ID:       id,
		Category: category,
		Geometry: geometry,
		Bound:    geometry.Bound(),
	}
}

// Contains reports whether p lies inside the feature, holes excluded.
func (f Feature) Contains(p orb.Point) bool {
	if !f.Bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(f.Geometry, p)
}

// PolygonsFromOverpass converts an "out geom" Overpass answer into features.
// Closed ways become single polygons. Multipolygon relations are assembled
// from their outer and inner member ways. Elements that cannot be classified
// or do not form closed rings are skipped.
func PolygonsFromOverpass(resp *osm.OverpassResponse) []Feature {
	if resp == nil {
		return nil
	}

	var features []Feature
	for _, el := range resp.Elements {
		category := Classify(el.Tags)
		if category == Unclassified {
			continue
		}

		var mp orb.MultiPolygon
		switch el.Type {
		case "way":
			ring := toRing(el.Geometry)
			if !isClosed(ring) {
				continue
			}
			mp = orb.MultiPolygon{orb.Polygon{ring}}
		case "relation":
			mp = relationPolygons(el.Members)
		}
		if len(mp) == 0 {
			continue
		}

		features = append(features, NewFeature(el.Key(), category, mp))
	}
	return features
}

func relationPolygons(members []osm.Member) orb.MultiPolygon {
	var outer, inner [][]orb.Point
	for _, m := range members {
		if m.Type != "way" || len(m.Geometry) < 2 {
			continue
		}
		switch m.Role {
		case "inner":
			inner = append(inner, toRing(m.Geometry))
		case "outer", "":
			outer = append(outer, toRing(m.Geometry))
		}
	}

	var mp orb.MultiPolygon
	for _, ring := range assembleRings(outer) {
		mp = append(mp, orb.Polygon{ring})
	}
	for _, hole := range assembleRings(inner) {
		for i := range mp {
			if planar.RingContains(mp[i][0], hole[0]) {
				mp[i] = append(mp[i], hole)
				break
			}
		}
	}
	return mp
}

func toRing(points []osm.LatLon) orb.Ring {
	ring := make(orb.Ring, 0, len(points))
	for _, p := range points {
		ring = append(ring, orb.Point{p.Lon, p.Lat})
	}
	return ring
}

func isClosed(r []orb.Point) bool {
	return len(r) >= 4 && r[0] == r[len(r)-1]
}

// assembleRings joins way segments that share end points into closed rings.
// Segments that never close are dropped.
func assembleRings(segments [][]orb.Point) []orb.Ring {
	pending := make([][]orb.Point, 0, len(segments))
	for _, s := range segments {
		if len(s) >= 2 {
			pending = append(pending, s)
		}
	}

	var rings []orb.Ring
	for len(pending) > 0 {
		cur := append([]orb.Point(nil), pending[0]...)
		pending = pending[1:]

		for !isClosed(cur) {
			joined := false
			for i, s := range pending {
				head, tail := cur[0], cur[len(cur)-1]
				switch {
				case tail == s[0]:
					cur = append(cur, s[1:]...)
				case tail == s[len(s)-1]:
					cur = append(cur, reversed(s)[1:]...)
				case head == s[len(s)-1]:
					cur = append(append([]orb.Point(nil), s[:len(s)-1]...), cur...)
				case head == s[0]:
					cur = append(reversed(s)[:len(s)-1], cur...)
				default:
					continue
				}
				pending = append(pending[:i], pending[i+1:]...)
				joined = true
				break
			}
			if !joined {
				break
			}
		}

		if isClosed(cur) {
			rings = append(rings, orb.Ring(cur))
		}
	}
	return rings
}

func reversed(s []orb.Point) []orb.Point {
	out := make([]orb.Point, len(s))
	for i, p := range s {
		out[len(s)-1-i] = p
	}
	return out
}
