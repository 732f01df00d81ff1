// Package geo provides common geographic types and calculations.
// It centralizes location-based data structures and algorithms to ensure
// consistency across the codebase.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the mean radius of Earth according to WGS-84 in meters
const EarthRadius = 6371000.0

// MaxSiteRadius is the largest catchment radius accepted for a site, in meters.
const MaxSiteRadius = 10000.0

// Location represents a geographic coordinate (latitude and longitude)
// with standardized JSON field names.
//
// Example:
//
//	loc := geo.Location{Latitude: 51.5072, Longitude: -0.1276}
//	dist := geo.HaversineDistance(loc.Latitude, loc.Longitude, 51.4545, -2.5879)
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point converts the location to an orb point (lon, lat order).
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// FromPoint converts an orb point back into a Location.
func FromPoint(p orb.Point) Location {
	return Location{Latitude: p.Lat(), Longitude: p.Lon()}
}

// DistanceTo returns the great-circle distance to other in meters.
func (l Location) DistanceTo(other Location) float64 {
	return HaversineDistance(l.Latitude, l.Longitude, other.Latitude, other.Longitude)
}

// Address represents a structured address
type Address struct {
	Street      string `json:"street,omitempty"`
	HouseNumber string `json:"house_number,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Formatted   string `json:"formatted,omitempty"`
}

// Place represents a named location with coordinates and optional address
type Place struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Location   Location `json:"location"`
	Address    Address  `json:"address,omitempty"`
	Importance float64  `json:"importance,omitempty"` // Nominatim importance score
}

// BoundingBox represents a geographic bounding box with southwest and northeast corners
type BoundingBox struct {
	MinLat float64 // Southern edge (minimum latitude)
	MinLon float64 // Western edge (minimum longitude)
	MaxLat float64 // Northern edge (maximum latitude)
	MaxLon float64 // Eastern edge (maximum longitude)
}

// NewBoundingBox creates a new empty bounding box
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: 90.0, // Start with inverted min/max so any point extends correctly
		MinLon: 180.0,
		MaxLat: -90.0,
		MaxLon: -180.0,
	}
}

// BoundingBoxAround returns the box enclosing a circle of radius meters.
func BoundingBoxAround(center Location, radius float64) *BoundingBox {
	bb := NewBoundingBox()
	bb.ExtendWithPoint(center.Latitude, center.Longitude)

	latDelta := radius / 111320.0
	lonScale := math.Cos(center.Latitude * math.Pi / 180)
	lonDelta := latDelta
	if lonScale > 1e-6 {
		lonDelta = latDelta / lonScale
	}
	bb.MinLat = math.Max(-90, center.Latitude-latDelta)
	bb.MaxLat = math.Min(90, center.Latitude+latDelta)
	bb.MinLon = math.Max(-180, center.Longitude-lonDelta)
	bb.MaxLon = math.Min(180, center.Longitude+lonDelta)
	return bb
}

// ExtendWithPoint extends the bounding box to include the specified point
func (bb *BoundingBox) ExtendWithPoint(lat, lon float64) {
	if lat < bb.MinLat {
		bb.MinLat = lat
	}
	if lat > bb.MaxLat {
		bb.MaxLat = lat
	}
	if lon < bb.MinLon {
		bb.MinLon = lon
	}
	if lon > bb.MaxLon {
		bb.MaxLon = lon
	}
}

// Bound converts the box into an orb.Bound.
func (bb *BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{bb.MinLon, bb.MinLat},
		Max: orb.Point{bb.MaxLon, bb.MaxLat},
	}
}

// Destination returns the point reached by travelling distance meters from l
// along the initial bearing (degrees clockwise from north).
func (l Location) Destination(bearing, distance float64) Location {
	lat1 := l.Latitude * math.Pi / 180
	lon1 := l.Longitude * math.Pi / 180
	brng := bearing * math.Pi / 180
	d := distance / EarthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	// normalise to [-180, 180)
	lon := math.Mod(lon2*180/math.Pi+540, 360) - 180
	return Location{Latitude: lat2 * 180 / math.Pi, Longitude: lon}
}

// HaversineDistance calculates the great-circle distance between two points
// on the Earth's surface given their latitude and longitude in degrees.
// The result is returned in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadius * c
}
