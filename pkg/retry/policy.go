// Package retry computes backoff delays for transient archive.org failures and
// runs operations under that policy.
package retry

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Default policy values.
const (
	DefaultMaxRetries        = 3
	DefaultBaseDelay         = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultMaxBackoff        = 60 * time.Second
)

// Policy describes how many attempts an operation gets and how long to wait
// between them. MaxRetries counts total attempts, including the first.
type Policy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultPolicy returns the policy archive.org clients are expected to follow.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        DefaultMaxRetries,
		BaseDelay:         DefaultBaseDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxBackoff:        DefaultMaxBackoff,
	}
}

// ShouldRetry reports whether another attempt may be issued after attempt
// (zero based) attempts have been made.
func (p Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxRetries
}

// NextDelay returns the wait before the attempt following attempt.
// A server hint wins verbatim; otherwise BaseDelay * BackoffMultiplier^attempt
// capped at MaxBackoff.
func (p Policy) NextDelay(attempt int, serverHint *time.Duration) time.Duration {
	if serverHint != nil {
		if *serverHint <= 0 {
			return 0
		}
		return *serverHint
	}
	if attempt < 0 {
		attempt = 0
	}
	multiplier := p.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delay := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if p.MaxBackoff > 0 && (delay > float64(p.MaxBackoff) || math.IsInf(delay, 0) || math.IsNaN(delay)) {
		return p.MaxBackoff
	}
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// ParseRetryAfter parses a Retry-After header value. Integer seconds are the
// common form; HTTP dates are accepted too. Missing or malformed values
// return nil so the caller falls back to backoff.
func ParseRetryAfter(value string) *time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		d := time.Duration(max(secs, 0)) * time.Second
		return &d
	}
	if at, err := http.ParseTime(value); err == nil {
		d := max(time.Until(at).Round(time.Second), 0)
		return &d
	}
	return nil
}
