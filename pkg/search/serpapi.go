package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikeboe/company-researcher/pkg/research"
)

// SerpAPI proxies Google results through serpapi.com. The free plan is a
// small monthly quota, so it sits late in the free cascade.
type SerpAPI struct {
	apiKey string
	client *http.Client
}

func NewSerpAPI(apiKey string) *SerpAPI {
	return &SerpAPI{apiKey: apiKey, client: &http.Client{Timeout: 15 * time.Second}}
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Available() bool { return s.apiKey != "" }

func (s *SerpAPI) Search(ctx context.Context, query string, maxResults int, _, _ []string) ([]research.SearchResult, error) {
	endpoint := "https://serpapi.com/search.json?engine=google" +
		"&api_key=" + url.QueryEscape(s.apiKey) +
		"&q=" + url.QueryEscape(query) +
		"&num=" + strconv.Itoa(maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi http %d", resp.StatusCode)
	}

	var payload struct {
		Error          string `json:"error"`
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		if strings.Contains(strings.ToLower(payload.Error), "run out of searches") {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("serpapi: %s", payload.Error)
	}

	results := make([]research.SearchResult, 0, len(payload.OrganicResults))
	for _, r := range payload.OrganicResults {
		results = append(results, research.SearchResult{
			Title:   r.Title,
			URL:     r.Link,
			Content: r.Snippet,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
