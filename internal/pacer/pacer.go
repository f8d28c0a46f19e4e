package pacer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out upstream requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Gate is a minimum-interval gate backed by a token bucket of size one.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate that lets one call through per interval.
// A non-positive interval disables pacing.
func NewGate(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// Nop never waits.
type Nop struct{}

// Wait returns ctx.Err() without blocking.
func (Nop) Wait(ctx context.Context) error { return ctx.Err() }
