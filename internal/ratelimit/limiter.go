package ratelimit

import (
	"context"
	"os"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the DataSetIQ API surfaces we throttle independently
type API string

const (
	// APISeriesData represents the per-series detail and data endpoints
	APISeriesData API = "series_data"
	// APISearch represents the search/browse endpoint
	APISearch API = "search"
	// APIIngest represents the dataset ingestion-request endpoint
	APIIngest API = "ingest"
)

// Limiter manages rate limits for the different API surfaces
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

var (
	instance *Limiter
	once     sync.Once
)

// GetLimiter returns the singleton rate limiter instance
func GetLimiter() *Limiter {
	once.Do(func() {
		instance = &Limiter{
			limiters: make(map[API]*rate.Limiter),
		}
		instance.initLimiters()
	})
	return instance
}

// initLimiters initializes rate limiters for each API surface with conservative defaults
func (l *Limiter) initLimiters() {
	// In test mode, use unlimited rate limits to avoid slowing down tests
	if os.Getenv("GO_TESTING") == "1" || isTestMode() {
		l.limiters[APISeriesData] = rate.NewLimiter(rate.Inf, 1)
		l.limiters[APISearch] = rate.NewLimiter(rate.Inf, 1)
		l.limiters[APIIngest] = rate.NewLimiter(rate.Inf, 1)
		return
	}

	// Production rate limits
	// Series data: free tier allows a handful of requests per second
	l.limiters[APISeriesData] = rate.NewLimiter(rate.Limit(4), 1)

	// Search is heavier on the upstream index; stay conservative
	l.limiters[APISearch] = rate.NewLimiter(rate.Limit(2), 1)

	// Ingestion requests queue background work upstream; one per second
	l.limiters[APIIngest] = rate.NewLimiter(rate.Limit(1), 1)
}

// isTestMode checks if we're running in test mode
func isTestMode() bool {
	// Check if the test binary is running by looking for test-related arguments
	for _, arg := range os.Args {
		if len(arg) > 6 && arg[:6] == "-test." {
			return true
		}
	}
	return false
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request
		return true
	}

	return limiter.Allow()
}
