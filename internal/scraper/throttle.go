package scraper

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between provider requests. A zero or
// negative interval disables throttling.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle builds a Throttle with the given minimum spacing between calls.
func NewThrottle(minInterval time.Duration) *Throttle {
	if minInterval <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next request slot, or until ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
