package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// rateLimitState is a pause shared by all workers. One worker hitting a
// rate limit holds back every other worker until the pause ends.
type rateLimitState struct {
	mu       sync.Mutex
	paused   atomic.Bool
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return r.paused.Load()
}

// pause extends the current pause to at least d from now.
func (r *rateLimitState) pause(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if end := time.Now().Add(d); end.After(r.pauseEnd) {
		r.pauseEnd = end
	}
	r.paused.Store(true)
}

// remaining returns the time left in the pause and clears the paused flag
// once it has run out.
func (r *rateLimitState) remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := time.Until(r.pauseEnd)
	if d <= 0 {
		r.paused.Store(false)
	}
	return d
}

// waitIfPaused blocks until the pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		remaining := r.remaining()
		if remaining <= 0 {
			break
		}
		if err := sleep(ctx, min(remaining, 100*time.Millisecond)); err != nil {
			return err
		}
	}
	return ctx.Err()
}
