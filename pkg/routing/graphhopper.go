package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
)

// GraphHopperProvider queries the GraphHopper routing API.
type GraphHopperProvider struct {
	client *osm.Client
	apiKey string
}

// NewGraphHopperProvider creates a GraphHopper provider for the car profile.
func NewGraphHopperProvider(client *osm.Client, apiKey string) *GraphHopperProvider {
	return &GraphHopperProvider{client: client, apiKey: apiKey}
}

// Name implements Provider.
func (p *GraphHopperProvider) Name() string { return osm.ServiceGraphHopper }

type graphHopperResponse struct {
	Message string `json:"message,omitempty"`
	Paths   []struct {
		Distance   float64 `json:"distance"`
		Time       float64 `json:"time"` // milliseconds
		Points     string  `json:"points"`
		Multiplier float64 `json:"points_encoded_multiplier"`
	} `json:"paths"`
}

// Route implements Provider.
func (p *GraphHopperProvider) Route(ctx context.Context, from, to geo.Location, geometry bool) (Result, error) {
	q := url.Values{}
	q.Add("point", fmt.Sprintf("%f,%f", from.Latitude, from.Longitude))
	q.Add("point", fmt.Sprintf("%f,%f", to.Latitude, to.Longitude))
	q.Set("profile", "car")
	q.Set("calc_points", strconv.FormatBool(geometry))
	q.Set("points_encoded", "true")
	q.Set("instructions", "false")
	q.Set("key", p.apiKey)

	reqURL := strings.TrimRight(p.client.Endpoints().GraphHopper, "/") + "/api/1/route?" + q.Encode()
	req, err := p.client.NewRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(ctx, osm.ServiceGraphHopper, req)
	if err != nil {
		return Result{}, err
	}
	if err := osm.CheckStatus(osm.ServiceGraphHopper, resp); err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var out graphHopperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, osm.NewDataError(osm.ServiceGraphHopper, err)
	}
	if len(out.Paths) == 0 {
		if out.Message != "" {
			return Result{}, osm.NewAPIError(osm.ServiceGraphHopper, http.StatusOK, out.Message, osm.GuidanceRoutingNoRoute)
		}
		return Result{}, errors.New("graphhopper: no route found")
	}

	path := out.Paths[0]
	r := Result{
		DistanceMeters:  path.Distance,
		DurationSeconds: path.Time / 1000,
	}
	if geometry {
		r.Geometry = geo.DecodePolylinePrecision(path.Points, path.Multiplier)
	}
	return r, nil
}
