package ratelimit

import (
	"context"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// API represents a rate-limited family of provider endpoints
type API string

const (
	// APIStatements covers the income, cash flow and key metrics endpoints
	APIStatements API = "statements"
	// APIPrices covers the historical price endpoint, which the backward
	// date search calls up to once per candidate day
	APIPrices API = "prices"
)

// Limits maps each API to its sustained requests per second
type Limits map[API]float64

// DefaultLimits are conservative for the Financial Modeling Prep free tier
func DefaultLimits() Limits {
	return Limits{
		APIStatements: 2,
		APIPrices:     5,
	}
}

// Limiter manages rate limits for the provider APIs
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter with the given limits. A non-positive rate means unlimited.
// In test binaries every API is unlimited so tests are not slowed down
func New(limits Limits) *Limiter {
	l := &Limiter{limiters: make(map[API]*rate.Limiter, len(limits))}

	unlimited := os.Getenv("GO_TESTING") == "1" || isTestMode()
	for api, rps := range limits {
		if unlimited || rps <= 0 {
			l.limiters[api] = rate.NewLimiter(rate.Inf, 1)
			continue
		}
		l.limiters[api] = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return l
}

// isTestMode checks if we're running in test mode
func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
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
		return ctx.Err()
	}

	return limiter.Wait(ctx)
}
