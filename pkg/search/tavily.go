package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mikeboe/company-researcher/pkg/research"
)

// Tavily is the paid provider. It supports native include/exclude domain
// filtering, so the router passes the configured domain lists through
// instead of filtering post-hoc.
type Tavily struct {
	apiKey string
	depth  string
	client *http.Client
}

func NewTavily(apiKey, depth string) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{apiKey: apiKey, depth: depth, client: &http.Client{Timeout: 15 * time.Second}}
}

func (t *Tavily) Name() string { return "tavily" }

func (t *Tavily) Available() bool { return t.apiKey != "" }

func (t *Tavily) Search(ctx context.Context, query string, maxResults int, includeDomains, excludeDomains []string) ([]research.SearchResult, error) {
	body := map[string]any{
		"query":        query,
		"api_key":      t.apiKey,
		"search_depth": t.depth,
		"max_results":  maxResults,
	}
	if len(includeDomains) > 0 {
		body["include_domains"] = includeDomains
	}
	if len(excludeDomains) > 0 {
		body["exclude_domains"] = excludeDomains
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.tavily.com/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]research.SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, research.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
