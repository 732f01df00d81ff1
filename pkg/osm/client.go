// Package osm provides clients for the public mapping services used by site
// analysis: Nominatim, Overpass and the routing and population APIs that sit
// behind the same rate-limited HTTP client.
package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultUserAgent is the default User-Agent string
	DefaultUserAgent = "fuelsite/0.1.0"

	// geocodeCacheSize bounds the number of remembered geocoding answers
	geocodeCacheSize = 512
	// geocodeCacheTTL is how long geocoding answers stay valid
	geocodeCacheTTL = 24 * time.Hour
)

// Endpoints holds the base URL of every upstream service.
type Endpoints struct {
	Nominatim   string `yaml:"nominatim"`
	Overpass    string `yaml:"overpass"`
	OSRM        string `yaml:"osrm"`
	ORS         string `yaml:"ors"`
	GraphHopper string `yaml:"graphhopper"`
	WorldPop    string `yaml:"worldpop"`
}

// DefaultEndpoints returns the public service URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Nominatim:   "https://nominatim.openstreetmap.org",
		Overpass:    "https://overpass-api.de/api/interpreter",
		OSRM:        "https://router.project-osrm.org",
		ORS:         "https://api.openrouteservice.org",
		GraphHopper: "https://graphhopper.com",
		WorldPop:    "https://api.worldpop.org",
	}
}

// withDefaults fills empty endpoints from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Nominatim == "" {
		e.Nominatim = d.Nominatim
	}
	if e.Overpass == "" {
		e.Overpass = d.Overpass
	}
	if e.OSRM == "" {
		e.OSRM = d.OSRM
	}
	if e.ORS == "" {
		e.ORS = d.ORS
	}
	if e.GraphHopper == "" {
		e.GraphHopper = d.GraphHopper
	}
	if e.WorldPop == "" {
		e.WorldPop = d.WorldPop
	}
	return e
}

// Options configures a Client.
type Options struct {
	Endpoints  Endpoints
	RateLimits map[string]RateLimit
	UserAgent  string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client is the shared HTTP client for all upstream mapping services.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	limiter    *RateLimiter
	logger     *slog.Logger
	userAgent  string

	geocodeCache *expirable.LRU[string, geo.Place]
}

// NewClient creates a client with connection pooling and per-service rate limits.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		endpoints:    opts.Endpoints.withDefaults(),
		limiter:      NewRateLimiter(opts.RateLimits),
		logger:       logger.With("component", "osm"),
		userAgent:    ua,
		geocodeCache: expirable.NewLRU[string, geo.Place](geocodeCacheSize, nil, geocodeCacheTTL),
	}
}

// Endpoints returns the configured service URLs.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// NewRequest creates a request with the User-Agent header set.
func (c *Client) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent())
	return req, nil
}

// Do performs an HTTP request after waiting for the service's rate limit.
func (c *Client) Do(ctx context.Context, service string, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent())

	if err := c.limiter.Wait(ctx, service); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(service, err)
	}
	return resp, nil
}

// checkStatus converts a non-200 response into an APIError. The body is
// drained and closed on error.
func checkStatus(service string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return NewAPIError(service, resp.StatusCode, msg, "")
}

// CheckStatus is exported for sibling packages that talk to services through Do.
func CheckStatus(service string, resp *http.Response) error {
	return checkStatus(service, resp)
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%f", v)
}
