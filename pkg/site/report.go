package site

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/competitors"
	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/landuse"
	"github.com/dustin/go-humanize"
)

// maxReportStations bounds the competitor table.
const maxReportStations = 25

// Figure is a labelled headline number.
type Figure struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CompetitorRow is one line of the competitor table.
type CompetitorRow struct {
	Rank           int     `json:"rank"`
	Name           string  `json:"name"`
	Brand          string  `json:"brand"`
	DistanceKm     float64 `json:"distance_km"`
	RoadDistanceKm float64 `json:"road_distance_km,omitempty"`
	RoadEstimated  bool    `json:"road_estimated,omitempty"`
	Address        string  `json:"address,omitempty"`
}

// Report is the presentable form of an analysis.
type Report struct {
	AnalysisID   string                   `json:"analysis_id"`
	Title        string                   `json:"title"`
	Site         geo.Place                `json:"site"`
	RadiusMeters float64                  `json:"radius_m"`
	AnalyzedAt   time.Time                `json:"analyzed_at"`
	GeneratedAt  time.Time                `json:"generated_at"`
	KeyFigures   []Figure                 `json:"key_figures"`
	Competitors  []CompetitorRow          `json:"competitors"`
	Brands       []competitors.BrandShare `json:"brands"`
	LandUse      []landuse.Share          `json:"land_use"`
	Notes        []string                 `json:"notes,omitempty"`
	Text         string                   `json:"text"`
}

// BuildReport assembles a report from an analysis.
func BuildReport(a *Analysis, now time.Time) *Report {
	r := &Report{
		AnalysisID:   a.ID,
		Title:        "Site analysis: " + a.Label,
		Site:         a.Site,
		RadiusMeters: a.RadiusMeters,
		AnalyzedAt:   a.CreatedAt,
		GeneratedAt:  now.UTC(),
		Competitors:  []CompetitorRow{},
		Brands:       a.Competitors.Summary.Brands,
		LandUse:      []landuse.Share{},
	}
	if r.Brands == nil {
		r.Brands = []competitors.BrandShare{}
	}

	r.KeyFigures = keyFigures(a)

	for i, st := range a.Competitors.Stations {
		if i == maxReportStations {
			r.Notes = append(r.Notes, fmt.Sprintf("%d more stations not listed", len(a.Competitors.Stations)-i))
			break
		}
		row := CompetitorRow{
			Rank:       i + 1,
			Name:       st.Name,
			Brand:      st.Brand,
			DistanceKm: roundKm(st.DistanceMeters),
			Address:    st.Address,
		}
		if st.Road != nil {
			row.RoadDistanceKm = roundKm(st.Road.DistanceMeters)
			row.RoadEstimated = st.Road.Estimated
		}
		r.Competitors = append(r.Competitors, row)
	}

	if a.LandUse.Result != nil {
		r.LandUse = a.LandUse.Result.Shares
	}

	if n := a.Competitors.Summary.EstimatedRoadDistances; n > 0 {
		r.Notes = append(r.Notes, fmt.Sprintf("%d road distances are straight-line estimates", n))
	}
	for _, section := range []string{"competitors", "land_use", "population"} {
		if msg, ok := a.SectionErrors()[section]; ok {
			r.Notes = append(r.Notes, fmt.Sprintf("%s unavailable: %s", strings.ReplaceAll(section, "_", " "), msg))
		}
	}

	r.Text = renderText(r)
	return r
}

func keyFigures(a *Analysis) []Figure {
	figs := []Figure{
		{"Catchment radius", fmt.Sprintf("%s km", humanize.FtoaWithDigits(a.RadiusMeters/1000, 1))},
		{"Competitor stations", humanize.Comma(int64(a.Competitors.Summary.Count))},
	}

	if n := a.Competitors.Summary.Nearest; n != nil {
		figs = append(figs, Figure{"Nearest competitor",
			fmt.Sprintf("%s (%s, %s km)", displayName(*n), n.Brand, humanize.FtoaWithDigits(n.DistanceMeters/1000, 2))})
	}
	if len(a.Competitors.Summary.Brands) > 0 {
		top := a.Competitors.Summary.Brands[0]
		figs = append(figs, Figure{"Leading brand", fmt.Sprintf("%s (%.1f%%)", top.Brand, top.Percent)})
	}

	if est := a.Population.Estimate; est != nil {
		figs = append(figs,
			Figure{"Population", fmt.Sprintf("%s (%d)", humanize.Comma(int64(est.Total)), est.Year)},
			Figure{"Population density", fmt.Sprintf("%s per km²", humanize.Comma(int64(est.DensityPerKm2)))},
		)
		if a.Competitors.Summary.Count > 0 {
			perStation := est.Total / float64(a.Competitors.Summary.Count)
			figs = append(figs, Figure{"Residents per station", humanize.Comma(int64(perStation))})
		}
	}

	if lu := a.LandUse.Result; lu != nil {
		figs = append(figs, Figure{"Dominant land use",
			fmt.Sprintf("%s (%.1f%%)", lu.Dominant, lu.Percentages[lu.Dominant])})
	}
	return figs
}

func displayName(s competitors.Station) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Brand
}

func roundKm(m float64) float64 {
	return float64(int64(m/10+0.5)) / 100
}

func renderText(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.Title)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", len(r.Title)))
	fmt.Fprintf(&b, "Location: %.5f, %.5f\n", r.Site.Location.Latitude, r.Site.Location.Longitude)
	if r.Site.Address.Formatted != "" {
		fmt.Fprintf(&b, "Address:  %s\n", r.Site.Address.Formatted)
	}
	fmt.Fprintf(&b, "Analysed: %s\n\n", r.AnalyzedAt.Format(time.RFC1123))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY FIGURES\t")
	for _, f := range r.KeyFigures {
		fmt.Fprintf(tw, "%s\t%s\n", f.Label, f.Value)
	}
	tw.Flush()

	if len(r.Competitors) > 0 {
		fmt.Fprintln(&b, "\nCOMPETITORS")
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tName\tBrand\tDistance\tRoad")
		for _, c := range r.Competitors {
			road := "-"
			if c.RoadDistanceKm > 0 {
				road = fmt.Sprintf("%.2f km", c.RoadDistanceKm)
				if c.RoadEstimated {
					road += " (est.)"
				}
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f km\t%s\n", c.Rank, c.Name, c.Brand, c.DistanceKm, road)
		}
		tw.Flush()
	}

	if len(r.Brands) > 0 {
		fmt.Fprintln(&b, "\nBRAND SHARE")
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, br := range r.Brands {
			fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", br.Brand, br.Count, br.Percent)
		}
		tw.Flush()
	}

	if len(r.LandUse) > 0 {
		fmt.Fprintln(&b, "\nLAND USE")
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, s := range r.LandUse {
			fmt.Fprintf(tw, "%s\t%.1f%%\n", s.Category, s.Percent)
		}
		tw.Flush()
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(&b, "\nNOTES")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	return b.String()
}
