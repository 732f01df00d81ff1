package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/NERVsystems/fuelsite/pkg/geo"
)

// ErrNoResults is returned when Nominatim finds nothing for a query.
var ErrNoResults = errors.New("no results found")

var (
	parensPattern = regexp.MustCompile(`\(([^)]*)\)`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// SanitizeAddress removes parenthesised fragments and collapses whitespace.
// It returns the cleaned address and the removed parenthesised content.
func SanitizeAddress(address string) (string, string) {
	var removed []string
	for _, m := range parensPattern.FindAllStringSubmatch(address, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			removed = append(removed, s)
		}
	}
	cleaned := parensPattern.ReplaceAllString(address, " ")
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
	cleaned = strings.ReplaceAll(cleaned, " ,", ",")
	return cleaned, strings.Join(removed, " ")
}

type nominatimSearchResult struct {
	PlaceID     json.Number `json:"place_id"`
	DisplayName string      `json:"display_name"`
	Lat         string      `json:"lat"`
	Lon         string      `json:"lon"`
	Importance  float64     `json:"importance"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Country     string `json:"country"`
		PostCode    string `json:"postcode"`
	} `json:"address"`
}

func (r nominatimSearchResult) place() (geo.Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return geo.Place{}, fmt.Errorf("invalid latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return geo.Place{}, fmt.Errorf("invalid longitude %q: %w", r.Lon, err)
	}

	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}

	return geo.Place{
		ID:         r.PlaceID.String(),
		Name:       r.DisplayName,
		Location:   geo.Location{Latitude: lat, Longitude: lon},
		Importance: r.Importance,
		Address: geo.Address{
			Street:      r.Address.Road,
			HouseNumber: r.Address.HouseNumber,
			City:        city,
			State:       r.Address.State,
			Country:     r.Address.Country,
			PostalCode:  r.Address.PostCode,
			Formatted:   r.DisplayName,
		},
	}, nil
}

// Geocode converts an address or place name to coordinates using Nominatim.
// Answers are cached by normalized query.
func (c *Client) Geocode(ctx context.Context, address string) (geo.Place, error) {
	cleaned, _ := SanitizeAddress(address)
	if cleaned == "" {
		return geo.Place{}, errors.New("address must not be empty")
	}

	key := cacheKey(cleaned)
	if place, ok := c.geocodeCache.Get(key); ok {
		c.logger.Debug("geocode cache hit", "query", cleaned)
		return place, nil
	}

	q := url.Values{}
	q.Set("q", cleaned)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("addressdetails", "1")

	var results []nominatimSearchResult
	if err := c.nominatimGet(ctx, "/search", q, &results); err != nil {
		return geo.Place{}, err
	}
	if len(results) == 0 {
		return geo.Place{}, fmt.Errorf("geocode %q: %w", cleaned, ErrNoResults)
	}

	place, err := results[0].place()
	if err != nil {
		return geo.Place{}, NewDataError(ServiceNominatim, err)
	}

	c.geocodeCache.Add(key, place)
	return place, nil
}

// ReverseGeocode converts coordinates to a human-readable address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (geo.Place, error) {
	if err := geo.ValidateCoords(lat, lon); err != nil {
		return geo.Place{}, err
	}

	q := url.Values{}
	q.Set("lat", formatFloat(lat))
	q.Set("lon", formatFloat(lon))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	var result struct {
		nominatimSearchResult
		Error string `json:"error"`
	}
	if err := c.nominatimGet(ctx, "/reverse", q, &result); err != nil {
		return geo.Place{}, err
	}
	if result.Error != "" {
		return geo.Place{}, fmt.Errorf("reverse geocode: %s: %w", result.Error, ErrNoResults)
	}

	place, err := result.place()
	if err != nil {
		return geo.Place{}, NewDataError(ServiceNominatim, err)
	}
	return place, nil
}

// cacheKey ignores case, commas and spacing.
func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(query, ",", " "))), " ")
}

func (c *Client) nominatimGet(ctx context.Context, path string, q url.Values, out any) error {
	reqURL := strings.TrimRight(c.endpoints.Nominatim, "/") + path + "?" + q.Encode()

	req, err := c.NewRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Do(ctx, ServiceNominatim, req)
	if err != nil {
		return err
	}
	if err := checkStatus(ServiceNominatim, resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataError(ServiceNominatim, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
