package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikeboe/company-researcher/pkg/cache"
	"github.com/mikeboe/company-researcher/pkg/research"
)

type stubProvider struct {
	name      string
	available bool
	results   []research.SearchResult
	err       error
	calls     int
}

func (p *stubProvider) Name() string    { return p.name }
func (p *stubProvider) Available() bool { return p.available }

func (p *stubProvider) Search(ctx context.Context, query string, maxResults int, includeDomains, excludeDomains []string) ([]research.SearchResult, error) {
	p.calls++
	return p.results, p.err
}

func results(urls ...string) []research.SearchResult {
	out := make([]research.SearchResult, len(urls))
	for i, u := range urls {
		out[i] = research.SearchResult{Title: u, URL: u}
	}
	return out
}

func TestRouterShortCircuitsOnFirstSuccess(t *testing.T) {
	first := &stubProvider{name: "first", available: true, results: results("https://a.example/1")}
	second := &stubProvider{name: "second", available: true, results: results("https://b.example/1")}

	r := NewRouter([]Backend{
		{Provider: first, Cooldown: DefaultCooldown},
		{Provider: second, Cooldown: DefaultCooldown},
	}, Config{})

	got := r.Search(context.Background(), "acme corp", 5, research.StrategyFreeFirst)
	if len(got) != 1 || got[0].Provider != "first" {
		t.Fatalf("got %+v, want one result from first", got)
	}
	if second.calls != 0 {
		t.Errorf("second provider called %d times, want 0", second.calls)
	}
	if got[0].Query != "acme corp" {
		t.Errorf("Query = %q, want the original query", got[0].Query)
	}
}

func TestRouterFallsThroughFailuresAndEmptyResults(t *testing.T) {
	failing := &stubProvider{name: "failing", available: true, err: errors.New("boom")}
	empty := &stubProvider{name: "empty", available: true}
	unavailable := &stubProvider{name: "unavailable", available: false, results: results("https://never.example")}
	working := &stubProvider{name: "working", available: true, results: results("https://c.example/1")}

	r := NewRouter([]Backend{
		{Provider: failing, Cooldown: DefaultCooldown},
		{Provider: empty, Cooldown: DefaultCooldown},
		{Provider: unavailable, Cooldown: DefaultCooldown},
		{Provider: working, Cooldown: DefaultCooldown},
	}, Config{})

	got := r.Search(context.Background(), "acme corp", 5, research.StrategyFreeFirst)
	if len(got) != 1 || got[0].Provider != "working" {
		t.Fatalf("got %+v, want the working provider's result", got)
	}
	if unavailable.calls != 0 {
		t.Errorf("unavailable provider was called")
	}
}

func TestRouterExhaustionReturnsEmpty(t *testing.T) {
	failing := &stubProvider{name: "failing", available: true, err: errors.New("boom")}

	r := NewRouter([]Backend{
		{Provider: failing, Cooldown: DefaultCooldown},
	}, Config{})

	got := r.Search(context.Background(), "acme corp", 5, research.StrategyFreeFirst)
	if len(got) != 0 {
		t.Errorf("got %+v, want empty on exhaustion", got)
	}
}

func TestRouterRateLimitCooldown(t *testing.T) {
	limited := &stubProvider{name: "limited", available: true, err: ErrRateLimited}
	backup := &stubProvider{name: "backup", available: true, results: results("https://d.example/1")}

	r := NewRouter([]Backend{
		{Provider: limited, Cooldown: DefaultCooldown},
		{Provider: backup, Cooldown: DefaultCooldown},
	}, Config{})

	base := time.Now()
	r.now = func() time.Time { return base }

	// First query trips the limit and falls through to the backup.
	got := r.Search(context.Background(), "query one", 5, research.StrategyFreeFirst)
	if len(got) != 1 || got[0].Provider != "backup" {
		t.Fatalf("got %+v, want backup result", got)
	}
	if limited.calls != 1 {
		t.Fatalf("limited provider called %d times, want 1", limited.calls)
	}

	// While cooling down the limited provider is skipped entirely.
	r.Search(context.Background(), "query two", 5, research.StrategyFreeFirst)
	if limited.calls != 1 {
		t.Errorf("limited provider called during cool-down")
	}

	// After the window it is tried again.
	r.now = func() time.Time { return base.Add(DefaultCooldown + time.Second) }
	limited.err = nil
	limited.results = results("https://recovered.example/1")
	got = r.Search(context.Background(), "query three", 5, research.StrategyFreeFirst)
	if len(got) != 1 || got[0].Provider != "limited" {
		t.Errorf("got %+v, want the recovered provider first", got)
	}
}

func TestRouterCacheHit(t *testing.T) {
	provider := &stubProvider{name: "live", available: true, results: results("https://e.example/1")}

	r := NewRouter([]Backend{
		{Provider: provider, Cooldown: DefaultCooldown},
	}, Config{Cache: cache.NewMemory(time.Minute)})

	first := r.Search(context.Background(), "Acme  Corp", 5, research.StrategyFreeFirst)
	if len(first) != 1 || first[0].Provider != "live" {
		t.Fatalf("got %+v, want live result", first)
	}

	// Same query normalized differently must hit the cache.
	second := r.Search(context.Background(), "  acme corp ", 5, research.StrategyFreeFirst)
	if len(second) != 1 || second[0].Provider != "cache" {
		t.Fatalf("got %+v, want cached result tagged cache", second)
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}

	stats := r.Stats()
	if stats.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", stats.CacheHits)
	}
	if stats.TotalQueries != 2 {
		t.Errorf("TotalQueries = %d, want 2", stats.TotalQueries)
	}
}

func TestRouterCacheHitRespectsMaxResults(t *testing.T) {
	provider := &stubProvider{name: "live", available: true, results: results(
		"https://e.example/1", "https://e.example/2", "https://e.example/3",
		"https://e.example/4", "https://e.example/5",
	)}

	r := NewRouter([]Backend{
		{Provider: provider, Cooldown: DefaultCooldown},
	}, Config{Cache: cache.NewMemory(time.Minute)})

	first := r.Search(context.Background(), "acme corp", 5, research.StrategyFreeFirst)
	if len(first) != 5 {
		t.Fatalf("got %d results, want 5", len(first))
	}

	// Re-running with a smaller limit must not return the full cached set.
	second := r.Search(context.Background(), "acme corp", 2, research.StrategyFreeFirst)
	if len(second) != 2 {
		t.Fatalf("got %d cached results, want 2", len(second))
	}
	if second[0].Provider != "cache" {
		t.Errorf("Provider = %q, want cache", second[0].Provider)
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
}

func TestRouterStrategyOrder(t *testing.T) {
	free := &stubProvider{name: "free", available: true, results: results("https://free.example/1")}
	paid := &stubProvider{name: "paid", available: true, results: results("https://paid.example/1")}

	newRouter := func() (*Router, *stubProvider, *stubProvider) {
		f := &stubProvider{name: free.name, available: true, results: free.results}
		p := &stubProvider{name: paid.name, available: true, results: paid.results}
		r := NewRouter([]Backend{
			{Provider: f, Cooldown: DefaultCooldown},
			{Provider: p, Cooldown: DefaultCooldown, Paid: true},
		}, Config{})
		return r, f, p
	}

	tests := []struct {
		name         string
		strategy     research.Strategy
		wantProvider string
		wantPaidCall bool
	}{
		{"Auto prefers paid", research.StrategyAuto, "paid", true},
		{"Free first prefers free", research.StrategyFreeFirst, "free", false},
		{"Maximum free prefers free", research.StrategyMaximumFree, "free", false},
		{"Free only never pays", research.StrategyFreeOnly, "free", false},
		{"Tavily only skips free", research.StrategyTavilyOnly, "paid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, f, p := newRouter()
			got := r.Search(context.Background(), "acme corp", 5, tt.strategy)
			if len(got) != 1 || got[0].Provider != tt.wantProvider {
				t.Fatalf("got %+v, want result from %s", got, tt.wantProvider)
			}
			if tt.wantPaidCall != (p.calls > 0) {
				t.Errorf("paid calls = %d, wantPaidCall %v", p.calls, tt.wantPaidCall)
			}
			if tt.strategy == research.StrategyTavilyOnly && f.calls > 0 {
				t.Errorf("free provider called under tavily_only")
			}
		})
	}
}

func TestRouterFreeOnlyWithFailingFreeNeverPays(t *testing.T) {
	free := &stubProvider{name: "free", available: true, err: errors.New("boom")}
	paid := &stubProvider{name: "paid", available: true, results: results("https://paid.example/1")}

	r := NewRouter([]Backend{
		{Provider: free, Cooldown: DefaultCooldown},
		{Provider: paid, Cooldown: DefaultCooldown, Paid: true},
	}, Config{})

	got := r.Search(context.Background(), "acme corp", 5, research.StrategyFreeOnly)
	if len(got) != 0 {
		t.Errorf("got %+v, want empty", got)
	}
	if paid.calls != 0 {
		t.Errorf("paid provider called %d times under free_only", paid.calls)
	}
}

func TestRouterExcludeDomains(t *testing.T) {
	provider := &stubProvider{name: "live", available: true, results: results(
		"https://keep.example/page",
		"https://spam.example/page",
	)}

	r := NewRouter([]Backend{
		{Provider: provider, Cooldown: DefaultCooldown},
	}, Config{ExcludeDomains: []string{"spam.example"}})

	got := r.Search(context.Background(), "acme corp", 5, research.StrategyFreeFirst)
	if len(got) != 1 || got[0].URL != "https://keep.example/page" {
		t.Errorf("got %+v, want only the kept URL", got)
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Sentinel", ErrRateLimited, true},
		{"Wrapped sentinel", errors.Join(errors.New("ctx"), ErrRateLimited), true},
		{"HTTP 429 text", errors.New("unexpected status 429"), true},
		{"Quota text", errors.New("daily quota exceeded"), true},
		{"Rate limit text", errors.New("Rate Limit reached"), true},
		{"Unrelated", errors.New("connection refused"), false},
		{"Rate without limit", errors.New("exchange rate error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRateLimitError(tt.err); got != tt.want {
				t.Errorf("isRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestProviderState(t *testing.T) {
	base := time.Now()
	s := NewProviderState(time.Minute)

	if s.Limited(base) {
		t.Error("fresh state reports limited")
	}
	if !s.CooledDown(base) {
		t.Error("fresh state reports not cooled down")
	}

	s.MarkRateLimited(base)
	if !s.Limited(base.Add(30 * time.Second)) {
		t.Error("not limited inside the window")
	}
	if s.CooledDown(base.Add(30 * time.Second)) {
		t.Error("cooled down inside the window")
	}
	if !s.CooledDown(base.Add(time.Minute)) {
		t.Error("not cooled down at the window boundary")
	}
	if s.Limited(base.Add(time.Minute)) {
		t.Error("still limited after the window")
	}
	// Limited clears the flag; the provider is usable again.
	if s.Limited(base) {
		t.Error("flag not cleared after lazy reset")
	}
}
