package osm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Service names for rate limiting
	ServiceNominatim   = "nominatim"
	ServiceOverpass    = "overpass"
	ServiceOSRM        = "osrm"
	ServiceORS         = "ors"
	ServiceGraphHopper = "graphhopper"
	ServiceWorldPop    = "worldpop"
)

// RateLimit is the allowance for one service.
type RateLimit struct {
	Every time.Duration `yaml:"every"`
	Burst int           `yaml:"burst"`
}

// DefaultRateLimits returns limits following each service's public usage policy.
func DefaultRateLimits() map[string]RateLimit {
	return map[string]RateLimit{
		// https://operations.osmfoundation.org/policies/nominatim/
		ServiceNominatim: {Every: time.Second, Burst: 1},
		// https://wiki.openstreetmap.org/wiki/Overpass_API#Public_Overpass_API_instances
		ServiceOverpass: {Every: 30 * time.Second, Burst: 2},
		ServiceOSRM:     {Every: 600 * time.Millisecond, Burst: 5},
		// ORS free plan: 40 directions per minute
		ServiceORS:         {Every: 1500 * time.Millisecond, Burst: 5},
		ServiceGraphHopper: {Every: time.Second, Burst: 5},
		ServiceWorldPop:    {Every: 2 * time.Second, Burst: 2},
	}
}

// UnlimitedRateLimits disables waiting for every known service.
func UnlimitedRateLimits() map[string]RateLimit {
	limits := DefaultRateLimits()
	for k := range limits {
		limits[k] = RateLimit{}
	}
	return limits
}

// RateLimiter manages rate limiting for the upstream services.
// The limiter set is fixed at construction.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds limiters for the given services. Services missing
// from limits use DefaultRateLimits; a zero Every means unlimited.
func NewRateLimiter(limits map[string]RateLimit) *RateLimiter {
	merged := DefaultRateLimits()
	for k, v := range limits {
		merged[k] = v
	}

	rl := &RateLimiter{limiters: make(map[string]*rate.Limiter, len(merged))}
	for service, l := range merged {
		rl.limiters[service] = newLimiter(l)
	}
	return rl
}

func newLimiter(l RateLimit) *rate.Limiter {
	if l.Every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := l.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(l.Every), burst)
}

// Wait blocks until the rate limit for the specified service allows an event
// or the context is canceled.
func (rl *RateLimiter) Wait(ctx context.Context, service string) error {
	limiter, exists := rl.limiters[service]

	if !exists {
		return fmt.Errorf("no rate limiter defined for service: %s", service)
	}

	if err := limiter.Wait(ctx); err != nil {
		slog.Debug("rate limiter wait error", "service", service, "error", err)
		return err
	}

	return nil
}
