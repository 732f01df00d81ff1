package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// MinCircleSegments is the lowest segment count Circle will produce.
const MinCircleSegments = 8

// Circle approximates a geodesic circle as a closed polygon ring.
// Vertices run counter-clockwise starting due east of the center.
func Circle(center Location, radius float64, segments int) orb.Polygon {
	if segments < MinCircleSegments {
		segments = MinCircleSegments
	}

	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		// bearing is clockwise from north; walking it backwards from 90 gives CCW
		bearing := 90 - float64(i)*360/float64(segments)
		ring = append(ring, center.Destination(bearing, radius).Point())
	}
	ring = append(ring, ring[0])

	return orb.Polygon{ring}
}

// CircleAreaKm2 returns the area of the spherical cap of the given radius in
// square kilometres, on the same sphere HaversineDistance uses.
func CircleAreaKm2(center Location, radius float64) float64 {
	angle := radius / EarthRadius
	return 2 * math.Pi * EarthRadius * EarthRadius * (1 - math.Cos(angle)) / 1e6
}

// ValidateCoords checks that lat/lon are inside the WGS-84 ranges.
func ValidateCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude %f: must be between -90 and 90", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("invalid longitude %f: must be between -180 and 180", lon)
	}
	return nil
}

// ValidateRadius checks that radius is positive and not above max meters.
func ValidateRadius(radius, max float64) error {
	if radius <= 0 {
		return fmt.Errorf("radius must be greater than 0")
	}
	if radius > max {
		return fmt.Errorf("radius too large: %.0f (maximum allowed is %.0f meters)", radius, max)
	}
	return nil
}
