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

// GoogleCSE queries the Google Custom Search JSON API. The free tier is 100
// queries per day, so a quota error puts this provider into the long
// cool-down window.
type GoogleCSE struct {
	apiKey   string
	engineID string
	client   *http.Client
}

func NewGoogleCSE(apiKey, engineID string) *GoogleCSE {
	return &GoogleCSE{apiKey: apiKey, engineID: engineID, client: &http.Client{Timeout: 15 * time.Second}}
}

func (g *GoogleCSE) Name() string { return "google_cse" }

func (g *GoogleCSE) Available() bool { return g.apiKey != "" && g.engineID != "" }

func (g *GoogleCSE) Search(ctx context.Context, query string, maxResults int, _, _ []string) ([]research.SearchResult, error) {
	if maxResults > 10 {
		maxResults = 10 // API maximum per request
	}
	endpoint := "https://www.googleapis.com/customsearch/v1" +
		"?key=" + url.QueryEscape(g.apiKey) +
		"&cx=" + url.QueryEscape(g.engineID) +
		"&q=" + url.QueryEscape(query) +
		"&num=" + strconv.Itoa(maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The CSE API signals an exhausted daily quota with 429 or 403.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google cse http %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	results := make([]research.SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, research.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Content: item.Snippet,
		})
	}
	return results, nil
}
