package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikeboe/company-researcher/pkg/research"
)

// ErrRateLimited signals that a provider rejected the request because of a
// rate limit or exhausted quota. The router converts it into a cool-down
// state instead of letting it escape.
var ErrRateLimited = errors.New("provider rate limited")

// Cool-down windows. Quota-gated providers get a longer window because
// their limits reset daily or monthly, not per minute.
const (
	DefaultCooldown = 60 * time.Second
	QuotaCooldown   = time.Hour
)

// Provider is one search backend in the cascade.
type Provider interface {
	Name() string
	// Available reports whether the provider can be called at all, e.g.
	// whether its API key is configured.
	Available() bool
	Search(ctx context.Context, query string, maxResults int, includeDomains, excludeDomains []string) ([]research.SearchResult, error)
}

// ProviderState holds a provider's rate-limit flag. The reset is checked
// lazily at query time; there is no background timer.
type ProviderState struct {
	mu        sync.Mutex
	limited   bool
	limitedAt time.Time
	cooldown  time.Duration
}

func NewProviderState(cooldown time.Duration) *ProviderState {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &ProviderState{cooldown: cooldown}
}

// MarkRateLimited trips the cool-down starting at now.
func (s *ProviderState) MarkRateLimited(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = true
	s.limitedAt = now
}

// CooledDown reports whether the cool-down window has elapsed at now. Pure
// with respect to the stored state; it does not clear the flag.
func (s *ProviderState) CooledDown(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.limited || now.Sub(s.limitedAt) >= s.cooldown
}

// Limited reports whether the provider should be skipped at now, clearing
// the flag once the window has elapsed.
func (s *ProviderState) Limited(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.limited {
		return false
	}
	if now.Sub(s.limitedAt) >= s.cooldown {
		s.limited = false
		return false
	}
	return true
}
