package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// BandwidthLimiter throttles byte throughput with a token bucket holding one
// second worth of data. The zero value and nil are unlimited.
type BandwidthLimiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewBandwidthLimiter creates a limiter for bytesPerSec. A value <= 0 means unlimited.
func NewBandwidthLimiter(bytesPerSec int64) *BandwidthLimiter {
	if bytesPerSec <= 0 {
		return &BandwidthLimiter{}
	}
	burst := int(bytesPerSec)
	return &BandwidthLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
	}
}

// WaitN blocks until n bytes may be processed.
func (b *BandwidthLimiter) WaitN(ctx context.Context, n int) error {
	if b == nil || b.limiter == nil {
		return nil
	}
	// rate.Limiter rejects requests larger than the burst, so split them.
	for n > 0 {
		step := min(n, b.burst)
		if err := b.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// Unlimited reports whether no cap is applied.
func (b *BandwidthLimiter) Unlimited() bool {
	return b == nil || b.limiter == nil
}
