// Package retry runs an operation again with backoff until it succeeds,
// the error is not retryable or the attempts run out.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/abgdnv/bathifarms/pkg/config"
)

const defaultDelay = 100 * time.Millisecond

type Backoff func(attempt int) time.Duration

type ShouldRetry func(error) bool

type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	ShouldRetry ShouldRetry
}

// FromConfig builds an exponential backoff policy from the retry section of the config.
func FromConfig(cfg config.RetryConfig, shouldRetry ShouldRetry) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     ExponentialBackoff(cfg.InitialBackoff),
		ShouldRetry: shouldRetry,
	}
}

func (p *Policy) normalize() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = ExponentialBackoff(defaultDelay)
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = func(error) bool { return true }
	}
}

func ExponentialBackoff(delay time.Duration) Backoff {
	if delay <= 0 {
		delay = defaultDelay
	}
	return func(attempt int) time.Duration {
		base := delay << (attempt - 1)
		jitter := time.Duration(rand.Int64N(int64(base/2) + 1))
		return base + jitter
	}
}

func ConstantBackoff(delay time.Duration) Backoff {
	return func(int) time.Duration {
		return delay
	}
}

func Do(ctx context.Context, p Policy, fn func() error) error {
	_, err := DoWithResult(ctx, p, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func DoWithResult[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	p.normalize()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		var result T
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !p.ShouldRetry(err) || attempt == p.MaxAttempts {
			break
		}

		timer.Reset(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}
	}
	return zero, err
}
