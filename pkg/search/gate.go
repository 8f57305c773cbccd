package search

import (
	"context"
	"sync"
	"time"
)

// qpsGate serializes callers so at most one request fires per interval.
// Shared by providers whose upstream enforces a strict per-second limit.
type qpsGate struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

func newQPSGate(interval time.Duration) *qpsGate {
	return &qpsGate{interval: interval}
}

func (g *qpsGate) wait(ctx context.Context) error {
	// Reserve the next slot under the lock so concurrent callers cannot
	// both fire inside one interval. A cancelled caller leaves its slot
	// reserved; the interval guarantee holds either way.
	g.mu.Lock()
	slot := g.last.Add(g.interval)
	if now := time.Now(); slot.Before(now) {
		slot = now
	}
	g.last = slot
	g.mu.Unlock()

	if wait := time.Until(slot); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
