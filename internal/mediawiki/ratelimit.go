package mediawiki

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled at rpm tokens per minute.
type rateLimiter struct {
	rpm      int
	mu       sync.Mutex
	tokens   int
	lastFill time.Time
	poll     time.Duration
}

func newRateLimiter(rpm int) *rateLimiter {
	return &rateLimiter{
		rpm:      rpm,
		tokens:   rpm,
		lastFill: time.Now(),
		poll:     100 * time.Millisecond,
	}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		refill := int(now.Sub(r.lastFill).Seconds() * float64(r.rpm) / 60.0)
		if refill > 0 {
			r.tokens += refill
			if r.tokens > r.rpm {
				r.tokens = r.rpm
			}
			r.lastFill = now
		}
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
		}
	}
}
