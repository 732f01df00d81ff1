package landuse

import (
	"math"
	"sort"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/paulmach/orb"
)

const (
	// DefaultGridSize is the number of samples along each side of the grid.
	DefaultGridSize = 60
	// MinGridSize keeps at least a coarse picture for tiny grids.
	MinGridSize = 10
)

// Share is one category's part of the catchment.
type Share struct {
	Category Category `json:"category"`
	Samples  int      `json:"samples"`
	Percent  float64  `json:"percent"`
}

// Result is the land-use composition of a circle.
type Result struct {
	Center       geo.Location         `json:"center"`
	RadiusMeters float64              `json:"radius_m"`
	Samples      int                  `json:"samples"`
	FeatureCount int                  `json:"feature_count"`
	Percentages  map[Category]float64 `json:"percentages"`
	Shares       []Share              `json:"shares"`
	Dominant     Category             `json:"dominant"`
}

// Breakdown samples a gridSize x gridSize lattice over the circle's bounding
// box and keeps the points within radius. Each sample takes the category of
// the highest-priority feature containing it, or Unclassified. Percentages
// are rounded to one decimal and always sum to exactly 100.
func Breakdown(center geo.Location, radius float64, features []Feature, gridSize int) Result {
	if gridSize < MinGridSize {
		gridSize = MinGridSize
	}

	bb := geo.BoundingBoxAround(center, radius)
	area := bb.Bound()

	// features outside the catchment box can never match a sample
	ordered := make([]Feature, 0, len(features))
	for _, f := range features {
		if f.Bound.Intersects(area) {
			ordered = append(ordered, f)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityOf(ordered[i].Category) < priorityOf(ordered[j].Category)
	})

	latStep := (bb.MaxLat - bb.MinLat) / float64(gridSize)
	lonStep := (bb.MaxLon - bb.MinLon) / float64(gridSize)

	counts := make(map[Category]int, len(Categories))
	samples := 0
	for i := 0; i < gridSize; i++ {
		lat := bb.MinLat + (float64(i)+0.5)*latStep
		for j := 0; j < gridSize; j++ {
			lon := bb.MinLon + (float64(j)+0.5)*lonStep
			if geo.HaversineDistance(center.Latitude, center.Longitude, lat, lon) > radius {
				continue
			}
			samples++
			counts[categoryAt(ordered, orb.Point{lon, lat})]++
		}
	}

	return newResult(center, radius, len(features), samples, counts)
}

func categoryAt(ordered []Feature, p orb.Point) Category {
	for _, f := range ordered {
		if f.Contains(p) {
			return f.Category
		}
	}
	return Unclassified
}

func newResult(center geo.Location, radius float64, featureCount, samples int, counts map[Category]int) Result {
	r := Result{
		Center:       center,
		RadiusMeters: radius,
		Samples:      samples,
		FeatureCount: featureCount,
		Percentages:  make(map[Category]float64, len(Categories)),
	}

	if samples == 0 {
		counts = map[Category]int{Unclassified: 1}
		samples = 1
	}

	tenths := roundTenths(counts, samples)
	for _, c := range Categories {
		r.Percentages[c] = float64(tenths[c]) / 10
		if counts[c] > 0 {
			r.Shares = append(r.Shares, Share{
				Category: c,
				Samples:  counts[c],
				Percent:  r.Percentages[c],
			})
		}
	}
	if r.Samples == 0 {
		r.Shares[0].Samples = 0
	}

	sort.SliceStable(r.Shares, func(i, j int) bool {
		return r.Shares[i].Samples > r.Shares[j].Samples
	})
	r.Dominant = r.Shares[0].Category
	return r
}

// roundTenths distributes 1000 tenths of a percent by largest remainder.
func roundTenths(counts map[Category]int, total int) map[Category]int {
	out := make(map[Category]int, len(Categories))
	type rem struct {
		c    Category
		frac float64
	}
	var rems []rem
	assigned := 0
	for _, c := range Categories {
		exact := float64(counts[c]) * 1000 / float64(total)
		whole := int(math.Floor(exact))
		out[c] = whole
		assigned += whole
		rems = append(rems, rem{c, exact - float64(whole)})
	}

	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < 1000 && i < len(rems); i++ {
		out[rems[i].c]++
		assigned++
	}
	return out
}
