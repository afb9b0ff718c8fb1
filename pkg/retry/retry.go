package retry

import (
	"context"
	"io"
	"log/slog"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

// Timer abstracts the wait between attempts so tests can observe delays
// without sleeping.
type Timer = retrygo.Timer

// Option adjusts a single Do call.
type Option func(*options)

type options struct {
	timer   Timer
	logger  *slog.Logger
	onRetry func(attempt int, delay time.Duration, err error)
}

// WithTimer replaces the wall clock timer.
func WithTimer(t Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithLogger logs each retry at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOnRetry registers a callback invoked before each wait.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// policy's attempts are spent. Only errors for which errors.IsRetryable holds
// are retried. A Retry-After hint on the failing error sets the next delay
// exactly once; the following delay is computed from the backoff again.
// On exhaustion the last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	attempts := max(p.MaxRetries, 1)
	delayFor := func(n uint, err error) time.Duration {
		var hint *time.Duration
		if d, ok := errors.RetryAfterHint(err); ok {
			hint = &d
		}
		return p.NextDelay(int(n), hint)
	}

	rOpts := []retrygo.Option{
		retrygo.Context(ctx),
		retrygo.Attempts(uint(attempts)),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(errors.IsRetryable),
		// retry-go increments n before asking for the delay, so the wait
		// after the first attempt arrives as n == 1.
		retrygo.DelayType(func(n uint, err error, _ *retrygo.Config) time.Duration {
			if n > 0 {
				n--
			}
			return delayFor(n, err)
		}),
		retrygo.OnRetry(func(n uint, err error) {
			// retry-go also reports the final failed attempt; nothing waits after it.
			if int(n) >= attempts-1 {
				return
			}
			d := delayFor(n, err)
			o.logger.Debug("retrying request", "attempt", n+1, "max_attempts", attempts, "delay", d, "error", err)
			if o.onRetry != nil {
				o.onRetry(int(n), d, err)
			}
		}),
	}
	if o.timer != nil {
		rOpts = append(rOpts, retrygo.WithTimer(o.timer))
	}

	return retrygo.DoWithData(func() (T, error) {
		return fn(ctx)
	}, rOpts...)
}
