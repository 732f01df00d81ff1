// Package landuse classifies OpenStreetMap land-use polygons and tallies how
// much of a catchment circle each category covers.
package landuse

// Category is a coarse land-use class.
type Category string

const (
	Residential  Category = "residential"
	Commercial   Category = "commercial"
	Retail       Category = "retail"
	Industrial   Category = "industrial"
	Agricultural Category = "agricultural"
	Green        Category = "green"
	Water        Category = "water"
	Other        Category = "other"
	Unclassified Category = "unclassified"
)

// Priority decides which category wins where polygons overlap. Earlier
// entries win: a park drawn inside a residential area counts as green.
var Priority = []Category{
	Water,
	Retail,
	Commercial,
	Industrial,
	Green,
	Residential,
	Agricultural,
	Other,
}

// Categories lists every category a breakdown reports, in display order.
var Categories = append(append([]Category{}, Priority...), Unclassified)

func priorityOf(c Category) int {
	for i, p := range Priority {
		if p == c {
			return i
		}
	}
	return len(Priority)
}

var landuseValues = map[string]Category{
	"residential":             Residential,
	"commercial":              Commercial,
	"retail":                  Retail,
	"industrial":              Industrial,
	"port":                    Industrial,
	"quarry":                  Industrial,
	"farmland":                Agricultural,
	"farmyard":                Agricultural,
	"orchard":                 Agricultural,
	"vineyard":                Agricultural,
	"allotments":              Agricultural,
	"greenhouse_horticulture": Agricultural,
	"forest":                  Green,
	"grass":                   Green,
	"meadow":                  Green,
	"recreation_ground":       Green,
	"village_green":           Green,
	"cemetery":                Green,
	"reservoir":               Water,
	"basin":                   Water,
}

var naturalValues = map[string]Category{
	"wood":      Green,
	"scrub":     Green,
	"grassland": Green,
	"heath":     Green,
	"water":     Water,
	"wetland":   Water,
	"beach":     Other,
}

var leisureValues = map[string]Category{
	"park":           Green,
	"golf_course":    Green,
	"nature_reserve": Green,
	"pitch":          Green,
	"garden":         Green,
}

// Classify maps an element's OSM tags to a Category. The landuse key is
// consulted first, then natural, leisure and amenity. Unknown landuse values
// are Other; elements with none of these keys are Unclassified.
func Classify(tags map[string]string) Category {
	if v, ok := tags["landuse"]; ok {
		if c, ok := landuseValues[v]; ok {
			return c
		}
		return Other
	}
	if c, ok := naturalValues[tags["natural"]]; ok {
		return c
	}
	if c, ok := leisureValues[tags["leisure"]]; ok {
		return c
	}
	if tags["amenity"] == "parking" {
		return Other
	}
	return Unclassified
}
