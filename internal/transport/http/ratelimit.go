package http

import (
	"sync/atomic"
	"time"
)

// rateLimiter caps inbound frames per connection per minute. A zero limit
// allows everything.
type rateLimiter struct {
	limit int64
	count atomic.Int64
	reset *time.Ticker
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{
		limit: int64(limit),
		reset: time.NewTicker(time.Minute),
	}
}

func (r *rateLimiter) allow() bool {
	if r.limit <= 0 {
		return true
	}
	return r.count.Add(1) <= r.limit
}

func (r *rateLimiter) startReset(stop <-chan struct{}) {
	if r.reset == nil {
		return
	}
	go func() {
		for {
			select {
			case <-r.reset.C:
				r.count.Store(0)
			case <-stop:
				r.reset.Stop()
				return
			}
		}
	}()
}
