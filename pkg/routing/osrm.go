package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
)

// OSRMRouteResponse represents the response from the OSRM routing service
type OSRMRouteResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Routes  []OSRMRoute `json:"routes,omitempty"`
}

// OSRMRoute represents a single route in the OSRM response
type OSRMRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry string  `json:"geometry"`
}

// OSRMProvider queries an OSRM server. The public demo server needs no key.
type OSRMProvider struct {
	client *osm.Client
}

// NewOSRMProvider creates an OSRM provider for the driving profile.
func NewOSRMProvider(client *osm.Client) *OSRMProvider {
	return &OSRMProvider{client: client}
}

// Name implements Provider.
func (p *OSRMProvider) Name() string { return osm.ServiceOSRM }

// Route implements Provider.
func (p *OSRMProvider) Route(ctx context.Context, from, to geo.Location, geometry bool) (Result, error) {
	overview := "false"
	if geometry {
		overview = "simplified"
	}
	reqURL := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=%s&geometries=polyline",
		strings.TrimRight(p.client.Endpoints().OSRM, "/"),
		from.Longitude, from.Latitude,
		to.Longitude, to.Latitude,
		overview,
	)

	req, err := p.client.NewRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(ctx, osm.ServiceOSRM, req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	// OSRM reports NoRoute and similar failures with a 400 and a JSON body
	var out OSRMRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, osm.NewDataError(osm.ServiceOSRM, err)
	}
	if out.Code != "Ok" {
		return Result{}, osm.NewAPIError(osm.ServiceOSRM, resp.StatusCode,
			fmt.Sprintf("%s: %s", out.Code, out.Message), osm.GuidanceRoutingNoRoute)
	}
	if len(out.Routes) == 0 {
		return Result{}, errors.New("osrm: no route found")
	}

	route := out.Routes[0]
	r := Result{
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
	}
	if geometry {
		r.Geometry = geo.DecodePolyline(route.Geometry)
	}
	return r, nil
}
