// ABOUTME: Rate limiting between calls to the target's admin API
// ABOUTME: Token bucket with burst 1, so calls are spaced at a fixed interval

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next call may proceed or ctx is done
type Limiter interface {
	Wait(ctx context.Context) error
}

// Fixed spaces calls at least Interval apart. The first call never waits.
// One Fixed may be shared by several workers.
type Fixed struct {
	Interval time.Duration
	bucket   *rate.Limiter
}

// NewFixed returns a limiter allowing one call per interval.
// A non-positive interval means no spacing.
func NewFixed(interval time.Duration) *Fixed {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Fixed{
		Interval: interval,
		bucket:   rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the next call slot or until ctx is done
func (f *Fixed) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.bucket.Wait(ctx)
}

// Unlimited never waits, but still honours cancellation
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
