package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mikeboe/company-researcher/pkg/cache"
	"github.com/mikeboe/company-researcher/pkg/research"
)

// maxIncludeDomains caps how many configured include domains are passed to
// providers with native domain filtering.
const maxIncludeDomains = 5

// Backend pairs a provider with its cascade role and cool-down window.
type Backend struct {
	Provider Provider
	Cooldown time.Duration
	// Paid marks the last-resort paid provider (Tavily).
	Paid bool
}

type backendEntry struct {
	provider Provider
	state    *ProviderState
	paid     bool
}

// ProviderStats are running counters for one provider.
type ProviderStats struct {
	Calls     int `json:"calls"`
	Successes int `json:"successes"`
}

// StatsSnapshot is a point-in-time copy of the router's counters.
type StatsSnapshot struct {
	TotalQueries  int                      `json:"total_queries"`
	CacheHits     int                      `json:"cache_hits"`
	FreeSources   int                      `json:"free_sources_total"`
	TavilySources int                      `json:"tavily_sources_total"`
	Providers     map[string]ProviderStats `json:"providers"`
}

// Config tunes a Router.
type Config struct {
	Cache          cache.Cache
	IncludeDomains []string
	ExcludeDomains []string
	// Timeout applies per outbound provider call. Defaults to 30s.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Router executes one query against an ordered cascade of providers. A
// provider error or rate limit degrades to "try the next one"; the router
// itself never fails a search.
type Router struct {
	entries []backendEntry
	cache   cache.Cache

	includeDomains []string
	excludeDomains []string
	timeout        time.Duration
	logger         *slog.Logger
	now            func() time.Time

	mu            sync.Mutex
	providerStats map[string]*ProviderStats
	totalQueries  int
	cacheHits     int
	freeSources   int
	tavilySources int
}

// NewRouter builds a router over the given cascade. Backends are tried in
// slice order for the free cascade; the Paid backend's position in the
// order depends on the strategy at query time.
func NewRouter(backends []Backend, cfg Config) *Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Router{
		cache:          cfg.Cache,
		includeDomains: cfg.IncludeDomains,
		excludeDomains: cfg.ExcludeDomains,
		timeout:        cfg.Timeout,
		logger:         cfg.Logger,
		now:            time.Now,
		providerStats:  make(map[string]*ProviderStats),
	}
	for _, b := range backends {
		r.entries = append(r.entries, backendEntry{
			provider: b.Provider,
			state:    NewProviderState(b.Cooldown),
			paid:     b.Paid,
		})
	}
	return r
}

// Search runs the cascade for one query. The first provider that yields
// results short-circuits the rest. Every provider failing or being in
// cool-down yields an empty result, never an error.
func (r *Router) Search(ctx context.Context, query string, maxResults int, strategy research.Strategy) []research.SearchResult {
	r.mu.Lock()
	r.totalQueries++
	r.mu.Unlock()

	key := cache.NormalizeQuery(query)
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok {
			r.mu.Lock()
			r.cacheHits++
			r.mu.Unlock()
			// The cache stores whatever the original query returned,
			// which may exceed this caller's limit.
			if maxResults > 0 && len(cached) > maxResults {
				cached = cached[:maxResults]
			}
			out := make([]research.SearchResult, len(cached))
			for i, res := range cached {
				res.Provider = "cache"
				res.Query = query
				out[i] = res
			}
			r.logger.Debug("Cache hit", "query", query, "results", len(out))
			return out
		}
	}

	for _, entry := range r.order(strategy) {
		if !entry.provider.Available() {
			continue
		}
		if entry.state.Limited(r.now()) {
			r.logger.Debug("Skipping rate-limited provider", "provider", entry.provider.Name(), "query", query)
			continue
		}

		results, err := r.callProvider(ctx, entry, query, maxResults)
		if err != nil {
			if isRateLimitError(err) {
				entry.state.MarkRateLimited(r.now())
				r.logger.Warn("Provider rate limited, entering cool-down", "provider", entry.provider.Name())
			} else {
				r.logger.Warn("Provider failed", "provider", entry.provider.Name(), "query", query, "error", err)
			}
			continue
		}

		results = r.filterExcluded(results)
		if len(results) == 0 {
			continue
		}

		for i := range results {
			results[i].Provider = entry.provider.Name()
			results[i].Query = query
		}
		r.recordSuccess(entry, len(results))
		if r.cache != nil {
			r.cache.Put(ctx, key, results)
		}
		return results
	}

	r.logger.Warn("All providers exhausted for query", "query", query)
	return nil
}

func (r *Router) callProvider(ctx context.Context, entry backendEntry, query string, maxResults int) ([]research.SearchResult, error) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.mu.Lock()
	r.stats(entry.provider.Name()).Calls++
	r.mu.Unlock()

	include := r.includeDomains
	if len(include) > maxIncludeDomains {
		include = include[:maxIncludeDomains]
	}
	return entry.provider.Search(cctx, query, maxResults, include, r.excludeDomains)
}

// order builds the cascade for a strategy. Free backends keep their
// configured order; the paid backend moves to the front for auto and
// tavily_only, to the back for the free-first strategies, and is dropped
// entirely for free_only.
func (r *Router) order(strategy research.Strategy) []backendEntry {
	var free, paid []backendEntry
	for _, e := range r.entries {
		if e.paid {
			paid = append(paid, e)
		} else {
			free = append(free, e)
		}
	}
	switch strategy {
	case research.StrategyTavilyOnly:
		return paid
	case research.StrategyFreeOnly:
		return free
	case research.StrategyAuto:
		return append(paid, free...)
	default: // free_first, maximum_free
		return append(free, paid...)
	}
}

func (r *Router) filterExcluded(results []research.SearchResult) []research.SearchResult {
	if len(r.excludeDomains) == 0 {
		return results
	}
	kept := results[:0]
	for _, res := range results {
		excluded := false
		for _, domain := range r.excludeDomains {
			if domain != "" && strings.Contains(res.URL, domain) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, res)
		}
	}
	return kept
}

func (r *Router) recordSuccess(entry backendEntry, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats(entry.provider.Name()).Successes++
	if entry.paid {
		r.tavilySources += count
	} else {
		r.freeSources += count
	}
}

// stats must be called with r.mu held.
func (r *Router) stats(name string) *ProviderStats {
	s, ok := r.providerStats[name]
	if !ok {
		s = &ProviderStats{}
		r.providerStats[name] = s
	}
	return s
}

// Stats returns a snapshot of the router's counters.
func (r *Router) Stats() StatsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := StatsSnapshot{
		TotalQueries:  r.totalQueries,
		CacheHits:     r.cacheHits,
		FreeSources:   r.freeSources,
		TavilySources: r.tavilySources,
		Providers:     make(map[string]ProviderStats, len(r.providerStats)),
	}
	for name, s := range r.providerStats {
		snap.Providers[name] = *s
	}
	return snap
}

// isRateLimitError recognizes both the sentinel and providers whose SDK
// errors only carry a message.
func isRateLimitError(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") {
		return true
	}
	return strings.Contains(msg, "rate") && strings.Contains(msg, "limit")
}
