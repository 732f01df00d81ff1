package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/NERVsystems/fuelsite/pkg/geo"
)

// LatLon is a coordinate pair as Overpass serializes it.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location converts the pair into a geo.Location.
func (p LatLon) Location() geo.Location {
	return geo.Location{Latitude: p.Lat, Longitude: p.Lon}
}

// Member is a relation member; Geometry is only present with "out geom".
type Member struct {
	Type     string   `json:"type"`
	Ref      int64    `json:"ref"`
	Role     string   `json:"role"`
	Geometry []LatLon `json:"geometry,omitempty"`
}

// Element is a node, way or relation returned by Overpass.
type Element struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"`
	Lat      float64           `json:"lat,omitempty"`
	Lon      float64           `json:"lon,omitempty"`
	Center   *LatLon           `json:"center,omitempty"`
	Geometry []LatLon          `json:"geometry,omitempty"`
	Members  []Member          `json:"members,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Key returns a unique "type/id" identifier.
func (e Element) Key() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

// Location returns the element's representative point: the node position,
// or the center computed by "out center". ok is false when neither exists.
func (e Element) Location() (geo.Location, bool) {
	if e.Type == "node" && !(e.Lat == 0 && e.Lon == 0) {
		return geo.Location{Latitude: e.Lat, Longitude: e.Lon}, true
	}
	if e.Center != nil {
		return e.Center.Location(), true
	}
	if len(e.Geometry) > 0 {
		bb := geo.NewBoundingBox()
		for _, p := range e.Geometry {
			bb.ExtendWithPoint(p.Lat, p.Lon)
		}
		return geo.Location{
			Latitude:  (bb.MinLat + bb.MaxLat) / 2,
			Longitude: (bb.MinLon + bb.MaxLon) / 2,
		}, true
	}
	return geo.Location{}, false
}

// OverpassResponse is the JSON body of an Overpass answer.
type OverpassResponse struct {
	Remark   string    `json:"remark,omitempty"`
	Elements []Element `json:"elements"`
}

// RunOverpass posts query to the Overpass interpreter and decodes the answer.
func (c *Client) RunOverpass(ctx context.Context, query string) (*OverpassResponse, error) {
	logger := c.logger.With("service", ServiceOverpass)

	req, err := c.NewRequest(ctx, http.MethodPost, c.endpoints.Overpass,
		strings.NewReader("data="+url.QueryEscape(query)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logger.Debug("running overpass query", "query", query)
	resp, err := c.Do(ctx, ServiceOverpass, req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(ServiceOverpass, resp); err != nil {
		logger.Error("overpass returned error", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	var out OverpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, NewDataError(ServiceOverpass, fmt.Errorf("failed to decode response: %w", err))
	}

	// Overpass reports runtime failures inside a 200 body
	if strings.Contains(out.Remark, "runtime error") {
		guidance := GuidanceOverpassTimeout
		if strings.Contains(out.Remark, "out of memory") {
			guidance = GuidanceOverpassMemory
		}
		return nil, NewAPIError(ServiceOverpass, http.StatusGatewayTimeout, out.Remark, guidance)
	}

	logger.Debug("overpass query complete", "elements", len(out.Elements))
	return &out, nil
}
