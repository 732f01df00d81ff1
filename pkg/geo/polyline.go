package geo

// Polyline precisions used by the routing services.
// OSRM and GraphHopper default to 5 decimal places, some ORS profiles to 6.
const (
	Polyline5 = 1e5
	Polyline6 = 1e6
)

// DecodePolyline decodes a Polyline5 string to a slice of locations.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
func DecodePolyline(encoded string) []Location {
	return DecodePolylinePrecision(encoded, Polyline5)
}

// DecodePolylinePrecision decodes an encoded polyline using the given
// coordinate multiplier (1e5, 1e6 ...).
func DecodePolylinePrecision(encoded string, multiplier float64) []Location {
	if len(encoded) == 0 {
		return []Location{}
	}
	if multiplier <= 0 {
		multiplier = Polyline5
	}

	points := make([]Location, 0, len(encoded)/4+1)
	index, lat, lng := 0, 0, 0
	for index < len(encoded) {
		var delta int
		delta, index = decodeSigned(encoded, index)
		lat += delta
		delta, index = decodeSigned(encoded, index)
		lng += delta

		points = append(points, Location{
			Latitude:  float64(lat) / multiplier,
			Longitude: float64(lng) / multiplier,
		})
	}

	return points
}

// decodeSigned reads one zigzag varint starting at index.
func decodeSigned(encoded string, index int) (int, int) {
	result, shift := 0, 0
	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	return (result >> 1) ^ (-(result & 1)), index
}

// PathLength sums the haversine length of consecutive points in meters.
func PathLength(points []Location) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += points[i-1].DistanceTo(points[i])
	}
	return total
}
