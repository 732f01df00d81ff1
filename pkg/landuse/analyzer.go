package landuse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"github.com/NERVsystems/fuelsite/pkg/osm/queries"
)

// Analyzer fetches land-use polygons around a site and tallies them.
type Analyzer struct {
	client   *osm.Client
	gridSize int
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer sampling gridSize points per side.
func NewAnalyzer(client *osm.Client, gridSize int) *Analyzer {
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}
	return &Analyzer{
		client:   client,
		gridSize: gridSize,
		logger:   client.Logger().With("component", "landuse"),
	}
}

// Analyze returns the land-use breakdown of the circle around center.
func (a *Analyzer) Analyze(ctx context.Context, center geo.Location, radius float64) (Result, error) {
	if err := geo.ValidateCoords(center.Latitude, center.Longitude); err != nil {
		return Result{}, err
	}
	if err := geo.ValidateRadius(radius, geo.MaxSiteRadius); err != nil {
		return Result{}, err
	}

	resp, err := a.client.RunOverpass(ctx, queries.LandUse(center.Latitude, center.Longitude, radius))
	if err != nil {
		return Result{}, fmt.Errorf("land use query failed: %w", err)
	}

	features := PolygonsFromOverpass(resp)
	a.logger.Debug("land use features parsed",
		"elements", len(resp.Elements),
		"features", len(features))

	return Breakdown(center, radius, features, a.gridSize), nil
}
