package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
)

// ORSProvider queries the OpenRouteService directions API.
type ORSProvider struct {
	client  *osm.Client
	apiKey  string
	profile string
}

// NewORSProvider creates an OpenRouteService provider for the driving-car profile.
func NewORSProvider(client *osm.Client, apiKey string) *ORSProvider {
	return &ORSProvider{client: client, apiKey: apiKey, profile: "driving-car"}
}

// Name implements Provider.
func (p *ORSProvider) Name() string { return osm.ServiceORS }

type orsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Route implements Provider.
func (p *ORSProvider) Route(ctx context.Context, from, to geo.Location, geometry bool) (Result, error) {
	body, err := json.Marshal(map[string]any{
		"coordinates": [][]float64{
			{from.Longitude, from.Latitude},
			{to.Longitude, to.Latitude},
		},
		"geometry": geometry,
	})
	if err != nil {
		return Result{}, err
	}

	url := strings.TrimRight(p.client.Endpoints().ORS, "/") + "/v2/directions/" + p.profile
	req, err := p.client.NewRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(ctx, osm.ServiceORS, req)
	if err != nil {
		return Result{}, err
	}
	if err := osm.CheckStatus(osm.ServiceORS, resp); err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var out orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, osm.NewDataError(osm.ServiceORS, err)
	}
	if out.Error != nil {
		return Result{}, osm.NewAPIError(osm.ServiceORS, http.StatusOK, out.Error.Message, osm.GuidanceRoutingNoRoute)
	}
	if len(out.Routes) == 0 {
		return Result{}, errors.New("ors: no route found")
	}

	route := out.Routes[0]
	r := Result{
		DistanceMeters:  route.Summary.Distance,
		DurationSeconds: route.Summary.Duration,
	}
	if geometry {
		r.Geometry = geo.DecodePolyline(route.Geometry)
	}
	return r, nil
}
