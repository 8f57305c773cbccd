// Package cache provides the pluggable search-result cache used by the
// search router. Keys are normalized query strings; values are the result
// lists a provider returned. Writes are idempotent upserts, so concurrent
// access needs no coordination beyond last-write-wins.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mikeboe/company-researcher/pkg/research"
)

// Cache stores search results keyed by normalized query.
type Cache interface {
	Get(ctx context.Context, key string) ([]research.SearchResult, bool)
	Put(ctx context.Context, key string, results []research.SearchResult)
}

// NormalizeQuery lowercases a query and collapses runs of whitespace so
// trivially different spellings share a cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

type memoryEntry struct {
	results   []research.SearchResult
	expiresAt time.Time
}

// Memory is an in-process cache with a fixed TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]research.SearchResult, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	out := make([]research.SearchResult, len(entry.results))
	copy(out, entry.results)
	return out, true
}

func (m *Memory) Put(_ context.Context, key string, results []research.SearchResult) {
	stored := make([]research.SearchResult, len(results))
	copy(stored, results)
	m.mu.Lock()
	m.entries[key] = memoryEntry{results: stored, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}
