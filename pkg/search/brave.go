package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mikeboe/company-researcher/pkg/research"
)

// braveGate paces requests to Brave's 1 req/s free tier, shared across all
// instances and goroutines.
var braveGate = newQPSGate(time.Second)

// Brave uses the Brave Search API free tier. Requires an API key sent via
// X-Subscription-Token.
type Brave struct {
	apiKey string
	client *http.Client
}

func NewBrave(apiKey string) *Brave {
	return &Brave{apiKey: apiKey, client: &http.Client{Timeout: 15 * time.Second}}
}

func (b *Brave) Name() string { return "brave" }

func (b *Brave) Available() bool { return b.apiKey != "" }

func (b *Brave) Search(ctx context.Context, query string, maxResults int, _, _ []string) ([]research.SearchResult, error) {
	if err := braveGate.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "https://api.search.brave.com/res/v1/web/search?q=" + url.QueryEscape(query) +
		"&count=" + strconv.Itoa(maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave http %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	results := make([]research.SearchResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, research.SearchResult{
			Title:   cleanHTML(r.Title),
			URL:     r.URL,
			Content: cleanHTML(r.Description),
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
