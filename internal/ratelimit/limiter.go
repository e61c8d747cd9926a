// Package ratelimit implements the token bucket pacer that spaces
// submissions out under the remote service's request-rate ceiling.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer admits one submission per interval. The first Wait is immediate;
// every later Wait blocks until a full interval has elapsed since the
// previous admission, or the context finishes.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer with the given interval. A non-positive interval
// disables pacing.
func New(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next submission may start, respecting the context.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}
	return nil
}
