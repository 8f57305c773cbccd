package search

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQPSGateSpacesSequentialCalls(t *testing.T) {
	g := newQPSGate(30 * time.Millisecond)

	start := time.Now()
	if err := g.wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := g.wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("second call returned after %v, want at least the interval", elapsed)
	}
}

func TestQPSGateSpacesConcurrentCalls(t *testing.T) {
	const interval = 25 * time.Millisecond
	g := newQPSGate(interval)

	var mu sync.Mutex
	var done []time.Time

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.wait(context.Background()); err != nil {
				t.Errorf("wait: %v", err)
				return
			}
			mu.Lock()
			done = append(done, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(done) != 3 {
		t.Fatalf("%d callers finished, want 3", len(done))
	}
	// Slots are reserved one interval apart, so the last caller cannot
	// finish before two full intervals have passed.
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("all callers done after %v, want at least %v", elapsed, 2*interval)
	}
}

func TestQPSGateCancelledContext(t *testing.T) {
	g := newQPSGate(time.Second)
	if err := g.wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := g.wait(ctx)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancelled wait did not return promptly")
	}
}
