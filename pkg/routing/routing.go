// Package routing computes road distances from a site to its surroundings.
// Providers are tried in order; when every provider fails, a haversine
// distance scaled by a road factor is returned instead so callers always
// receive a usable figure.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/cache"
	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/osm"
	"golang.org/x/sync/errgroup"
)

const (
	// SourceEstimate marks a distance computed without a routing service.
	SourceEstimate = "estimate"

	// DefaultRoadFactor converts straight-line to typical road distance.
	DefaultRoadFactor = 1.3
	// DefaultAverageSpeedKmh is used to derive estimated durations.
	DefaultAverageSpeedKmh = 40.0
	// DefaultBatchSize is the number of routes requested concurrently.
	DefaultBatchSize = 5
	// DefaultBatchDelay separates consecutive batches.
	DefaultBatchDelay = time.Second

	routeCacheTTL = time.Hour
	routeCacheMax = 2000
)

// Result is the road distance to one destination.
type Result struct {
	Destination     geo.Location   `json:"destination"`
	DistanceMeters  float64        `json:"distance_m"`
	DurationSeconds float64        `json:"duration_s"`
	Source          string         `json:"source"`
	Estimated       bool           `json:"estimated"`
	Geometry        []geo.Location `json:"geometry,omitempty"`
	// GeometryLengthMeters is the length of Geometry, when present.
	GeometryLengthMeters float64 `json:"geometry_length_m,omitempty"`
}

// Provider is a routing service able to compute a single car route.
// The route shape is only requested and decoded when geometry is true.
type Provider interface {
	Name() string
	Route(ctx context.Context, from, to geo.Location, geometry bool) (Result, error)
}

// Options tunes the fallback chain.
type Options struct {
	RoadFactor      float64
	AverageSpeedKmh float64
	BatchSize       int
	BatchDelay      time.Duration
	// KeepGeometry makes Distance and Batch return route shapes.
	KeepGeometry bool
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.RoadFactor <= 0 {
		o.RoadFactor = DefaultRoadFactor
	}
	if o.AverageSpeedKmh <= 0 {
		o.AverageSpeedKmh = DefaultAverageSpeedKmh
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Chain tries each provider in order and falls back to an estimate.
type Chain struct {
	providers []Provider
	opts      Options
	logger    *slog.Logger
	cache     *cache.TTLCache[string, Result]
}

// NewChain creates a fallback chain over providers.
func NewChain(opts Options, providers ...Provider) *Chain {
	opts = opts.withDefaults()
	return &Chain{
		providers: providers,
		opts:      opts,
		logger:    opts.Logger.With("component", "routing"),
		cache:     cache.NewTTLCache[string, Result](routeCacheTTL, 10*time.Minute, routeCacheMax),
	}
}

// Providers returns the provider names in the order they are tried.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// KeepsGeometry reports whether Distance and Batch return route shapes.
func (c *Chain) KeepsGeometry() bool {
	return c.opts.KeepGeometry
}

// Close stops the chain's cache cleanup.
func (c *Chain) Close() {
	c.cache.Stop()
}

func routeKey(from, to geo.Location, geometry bool) string {
	key := fmt.Sprintf("%.5f,%.5f>%.5f,%.5f", from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	if geometry {
		key += "+geom"
	}
	return key
}

// Distance returns the road distance between two points. It never fails:
// when no provider answers the haversine estimate is returned.
func (c *Chain) Distance(ctx context.Context, from, to geo.Location) Result {
	return c.distance(ctx, from, to, c.opts.KeepGeometry)
}

func (c *Chain) distance(ctx context.Context, from, to geo.Location, geometry bool) Result {
	key := routeKey(from, to, geometry)
	if r, ok := c.cache.Get(key); ok {
		return r
	}

	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}

		r, err := p.Route(ctx, from, to, geometry)
		if err != nil {
			c.logger.Warn("routing provider failed, trying next",
				"provider", p.Name(),
				"error", err)
			continue
		}

		r.Destination = to
		r.Source = p.Name()
		if geometry {
			r.GeometryLengthMeters = geo.PathLength(r.Geometry)
		} else {
			r.Geometry = nil
		}
		c.cache.Set(key, r)
		return r
	}

	return Estimate(from, to, c.opts.RoadFactor, c.opts.AverageSpeedKmh)
}

// Batch computes distances from origin to every destination. Destinations
// are processed BatchSize at a time with BatchDelay between batches; the
// result order matches destinations. If ctx ends, the remaining entries are
// filled with estimates.
func (c *Chain) Batch(ctx context.Context, origin geo.Location, destinations []geo.Location) []Result {
	return c.BatchGeometry(ctx, origin, destinations, c.opts.KeepGeometry)
}

// BatchGeometry is Batch with route shapes requested per call instead of
// by Options.KeepGeometry.
func (c *Chain) BatchGeometry(ctx context.Context, origin geo.Location, destinations []geo.Location, geometry bool) []Result {
	results := make([]Result, len(destinations))
	size := c.opts.BatchSize

	for start := 0; start < len(destinations); start += size {
		if start > 0 && !c.pause(ctx) {
			c.logger.Debug("batch interrupted, estimating remaining destinations",
				"remaining", len(destinations)-start)
			for i := start; i < len(destinations); i++ {
				results[i] = Estimate(origin, destinations[i], c.opts.RoadFactor, c.opts.AverageSpeedKmh)
			}
			break
		}

		end := min(start+size, len(destinations))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = c.distance(ctx, origin, destinations[i], geometry)
				return nil
			})
		}
		_ = g.Wait()

		c.logger.Debug("routing batch complete", "from", start, "to", end)
	}

	return results
}

// pause waits BatchDelay; it reports false when ctx ended first.
func (c *Chain) pause(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if c.opts.BatchDelay == 0 {
		return true
	}

	timer := time.NewTimer(c.opts.BatchDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Estimate derives a road distance from the great-circle distance.
func Estimate(from, to geo.Location, roadFactor, speedKmh float64) Result {
	if roadFactor <= 0 {
		roadFactor = DefaultRoadFactor
	}
	if speedKmh <= 0 {
		speedKmh = DefaultAverageSpeedKmh
	}

	distance := from.DistanceTo(to) * roadFactor
	return Result{
		Destination:     to,
		DistanceMeters:  distance,
		DurationSeconds: distance / (speedKmh * 1000 / 3600),
		Source:          SourceEstimate,
		Estimated:       true,
	}
}

// DefaultProviders builds the standard order ORS, GraphHopper, then OSRM.
// Keyed services without a key are left out.
func DefaultProviders(client *osm.Client, orsKey, graphHopperKey string, enableOSRM bool) []Provider {
	var providers []Provider
	if orsKey != "" {
		providers = append(providers, NewORSProvider(client, orsKey))
	}
	if graphHopperKey != "" {
		providers = append(providers, NewGraphHopperProvider(client, graphHopperKey))
	}
	if enableOSRM {
		providers = append(providers, NewOSRMProvider(client))
	}
	return providers
}
