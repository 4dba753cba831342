// Package retry runs fallible operations with bounded exponential backoff.
// Authentication and not-found failures are never retried.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

// Options configures Do. Zero values fall back to the defaults.
type Options struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	MinDelay   time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// OnRetry is called synchronously before each retry sleep with the error
	// of the failed attempt and that attempt's 1-based number.
	OnRetry func(err error, attempt int)
	// Retryable decides whether an error may be retried. Defaults to
	// everything that is not a permanent error.
	Retryable func(err error) bool
}

// DefaultOptions returns the default policy: 3 retries, 1s..10s, factor 2.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		MinDelay:   time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
	}
}

// FromPolicy converts a resolved context policy into Options.
func FromPolicy(p types.RetryPolicy) Options {
	return Options{
		MaxRetries: p.MaxRetries,
		MinDelay:   p.MinDelay,
		MaxDelay:   p.MaxDelay,
		Multiplier: p.Multiplier,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.MinDelay <= 0 {
		o.MinDelay = def.MinDelay
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	if o.Multiplier < 1 {
		o.Multiplier = def.Multiplier
	}
	if o.Retryable == nil {
		o.Retryable = func(err error) bool { return !errors.IsPermanent(err) }
	}
	return o
}

// Delay returns the sleep before retry n (1-based):
// min(MaxDelay, MinDelay * Multiplier^(n-1)).
func (o Options) Delay(n int) time.Duration {
	o = o.withDefaults()
	d := float64(o.MinDelay)
	for i := 1; i < n; i++ {
		d *= o.Multiplier
		if d >= float64(o.MaxDelay) {
			return o.MaxDelay
		}
	}
	return time.Duration(d)
}

func newBackOff(o Options) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.MinDelay
	b.MaxInterval = o.MaxDelay
	b.Multiplier = o.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return b
}

// Do runs op until it succeeds, fails permanently, exhausts the retry budget
// or ctx is cancelled. The last error is returned unchanged.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	attempt := 0
	var b backoff.BackOff = backoff.WithMaxRetries(newBackOff(opts), uint64(opts.MaxRetries))
	b = backoff.WithContext(b, ctx)

	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && !opts.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}, b, func(err error, _ time.Duration) {
		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt)
		}
	})
}
