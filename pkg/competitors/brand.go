package competitors

import (
	"strings"
)

// Unbranded labels stations without brand, operator or name tags.
const Unbranded = "Unbranded"

// brandAliases folds common spellings and sub-brands onto one brand.
// Keys are lower case.
var brandAliases = map[string]string{
	"shell":              "Shell",
	"shell express":      "Shell",
	"shell recharge":     "Shell",
	"bp":                 "BP",
	"bp connect":         "BP",
	"bp express":         "BP",
	"british petroleum":  "BP",
	"esso":               "Esso",
	"esso express":       "Esso",
	"exxon":              "Exxon",
	"exxonmobil":         "Exxon",
	"mobil":              "Mobil",
	"texaco":             "Texaco",
	"chevron":            "Chevron",
	"total":              "TotalEnergies",
	"total access":       "TotalEnergies",
	"totalenergies":      "TotalEnergies",
	"jet":                "Jet",
	"gulf":               "Gulf",
	"murco":              "Murco",
	"q8":                 "Q8",
	"aral":               "Aral",
	"agip":               "Eni",
	"eni":                "Eni",
	"repsol":             "Repsol",
	"cepsa":              "Moeve",
	"moeve":              "Moeve",
	"circle k":           "Circle K",
	"7-eleven":           "7-Eleven",
	"7 eleven":           "7-Eleven",
	"tesco":              "Tesco",
	"tesco extra":        "Tesco",
	"sainsbury's":        "Sainsbury's",
	"sainsburys":         "Sainsbury's",
	"asda":               "Asda",
	"asda express":       "Asda",
	"morrisons":          "Morrisons",
	"costco":             "Costco",
	"costco gasoline":    "Costco",
	"valero":             "Valero",
	"sunoco":             "Sunoco",
	"marathon":           "Marathon",
	"speedway":           "Speedway",
	"applegreen":         "Applegreen",
	"maxol":              "Maxol",
	"certas energy":      "Certas Energy",
	"harvest energy":     "Harvest Energy",
	"essar":              "Essar",
	"ultramar":           "Ultramar",
	"petro-canada":       "Petro-Canada",
	"petro canada":       "Petro-Canada",
	"ampol":              "Ampol",
	"caltex":             "Caltex",
	"indian oil":         "Indian Oil",
	"hpcl":               "HPCL",
	"bharat petroleum":   "BPCL",
}

// NormalizeBrand returns the canonical brand of a fuel station. The brand
// tag is preferred, then operator, then name. Known brands are recognised
// even with a trailing sub-brand ("Shell Express" is Shell).
func NormalizeBrand(tags map[string]string) string {
	var raw string
	for _, key := range []string{"brand", "operator", "name"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		return Unbranded
	}

	folded := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if brand, ok := brandAliases[folded]; ok {
		return brand
	}

	// longest known prefix wins so "bp connect x" matches before "bp"
	best := ""
	for alias := range brandAliases {
		if len(alias) > len(best) && strings.HasPrefix(folded, alias+" ") {
			best = alias
		}
	}
	if best != "" {
		return brandAliases[best]
	}
	return raw
}
