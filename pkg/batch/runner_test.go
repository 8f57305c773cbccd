package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikeboe/company-researcher/pkg/research"
)

func TestRunPreservesInputOrder(t *testing.T) {
	subjects := []string{"alpha", "beta", "gamma", "delta"}

	results := Run(context.Background(), subjects, 2, func(ctx context.Context, subject string) research.Result {
		return research.Result{Subject: subject, Success: true, Report: "report for " + subject}
	})

	if len(results) != len(subjects) {
		t.Fatalf("got %d results, want %d", len(results), len(subjects))
	}
	for i, subject := range subjects {
		if results[i].Subject != subject {
			t.Errorf("results[%d].Subject = %s, want %s", i, results[i].Subject, subject)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak int64
	var mu sync.Mutex

	subjects := make([]string, 12)
	for i := range subjects {
		subjects[i] = fmt.Sprintf("subject-%d", i)
	}

	Run(context.Background(), subjects, 3, func(ctx context.Context, subject string) research.Result {
		n := atomic.AddInt64(&running, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&running, -1)
		return research.Result{Subject: subject, Success: true}
	})

	if peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestRunOneFailureDoesNotStopOthers(t *testing.T) {
	subjects := []string{"ok-1", "fails", "ok-2"}

	results := Run(context.Background(), subjects, 2, func(ctx context.Context, subject string) research.Result {
		if subject == "fails" {
			return research.Result{Subject: subject, Success: false, Err: errors.New("boom").Error()}
		}
		return research.Result{Subject: subject, Success: true}
	})

	if results[1].Success {
		t.Error("failing subject reported success")
	}
	if !results[0].Success || !results[2].Success {
		t.Error("healthy subjects affected by the failure")
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	results := Run(ctx, []string{"alpha", "beta"}, 2, func(ctx context.Context, subject string) research.Result {
		atomic.AddInt64(&calls, 1)
		return research.Result{Subject: subject, Success: true}
	})

	if calls != 0 {
		t.Errorf("research func called %d times after cancellation", calls)
	}
	for _, r := range results {
		if r.Success {
			t.Errorf("cancelled subject %s reported success", r.Subject)
		}
		if r.Subject == "" {
			t.Error("cancelled result missing its subject")
		}
	}
}

func TestRunDefaultWorkers(t *testing.T) {
	results := Run(context.Background(), []string{"alpha"}, 0, func(ctx context.Context, subject string) research.Result {
		return research.Result{Subject: subject, Success: true}
	})
	if len(results) != 1 || !results[0].Success {
		t.Errorf("results = %+v", results)
	}
}
