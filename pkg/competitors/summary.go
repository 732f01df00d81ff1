package competitors

import (
	"math"
	"sort"
)

// BrandShare is one row of the brand share table.
type BrandShare struct {
	Brand   string  `json:"brand"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Summary condenses a competitor list into key figures.
type Summary struct {
	Count                     int          `json:"count"`
	Nearest                   *Station     `json:"nearest,omitempty"`
	AverageDistanceMeters     float64      `json:"average_distance_m"`
	AverageRoadDistanceMeters float64      `json:"average_road_distance_m,omitempty"`
	EstimatedRoadDistances    int          `json:"estimated_road_distances,omitempty"`
	Brands                    []BrandShare `json:"brands"`
}

// Summarize builds the competitor summary. stations are expected nearest
// first, as returned by Finder.Find.
func Summarize(stations []Station) Summary {
	s := Summary{Count: len(stations), Brands: []BrandShare{}}
	if len(stations) == 0 {
		return s
	}

	nearest := stations[0]
	s.Nearest = &nearest

	counts := make(map[string]int)
	var total, roadTotal float64
	var withRoad int
	for _, st := range stations {
		total += st.DistanceMeters
		counts[st.Brand]++
		if st.Road != nil {
			roadTotal += st.Road.DistanceMeters
			withRoad++
			if st.Road.Estimated {
				s.EstimatedRoadDistances++
			}
		}
	}
	s.AverageDistanceMeters = total / float64(len(stations))
	if withRoad > 0 {
		s.AverageRoadDistanceMeters = roadTotal / float64(withRoad)
	}

	for brand, n := range counts {
		s.Brands = append(s.Brands, BrandShare{
			Brand:   brand,
			Count:   n,
			Percent: math.Round(float64(n)*1000/float64(len(stations))) / 10,
		})
	}
	sort.Slice(s.Brands, func(i, j int) bool {
		if s.Brands[i].Count != s.Brands[j].Count {
			return s.Brands[i].Count > s.Brands[j].Count
		}
		return s.Brands[i].Brand < s.Brands[j].Brand
	})
	return s
}
