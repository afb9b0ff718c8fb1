// Package ratelimit spaces out requests to archive.org and optionally caps
// download bandwidth.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinRequestDelay is the spacing used when none is configured.
const DefaultMinRequestDelay = 150 * time.Millisecond

// Limiter enforces a minimum delay between permitted requests across all of
// its callers. Construct one per client and share it between the metadata
// fetcher and the downloader.
type Limiter struct {
	limiter  *rate.Limiter
	minDelay time.Duration
}

// New creates a Limiter that permits one request per minDelay.
// A non-positive minDelay disables spacing.
func New(minDelay time.Duration) *Limiter {
	if minDelay <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		// Burst 1: a request is permitted at most once per minDelay, in aggregate.
		limiter:  rate.NewLimiter(rate.Every(minDelay), 1),
		minDelay: minDelay,
	}
}

// Acquire blocks until the caller may issue its request. It only fails when
// ctx is done before the slot arrives.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// MinDelay returns the configured spacing.
func (l *Limiter) MinDelay() time.Duration {
	if l == nil {
		return 0
	}
	return l.minDelay
}
