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

// Mojeek queries the Mojeek Search API. Useful as a third angle because
// Mojeek runs its own independent index rather than reselling another
// engine's results.
type Mojeek struct {
	apiKey string
	client *http.Client
}

func NewMojeek(apiKey string) *Mojeek {
	return &Mojeek{apiKey: apiKey, client: &http.Client{Timeout: 15 * time.Second}}
}

func (m *Mojeek) Name() string { return "mojeek" }

func (m *Mojeek) Available() bool { return m.apiKey != "" }

func (m *Mojeek) Search(ctx context.Context, query string, maxResults int, _, _ []string) ([]research.SearchResult, error) {
	endpoint := "https://api.mojeek.com/search?fmt=json" +
		"&api_key=" + url.QueryEscape(m.apiKey) +
		"&q=" + url.QueryEscape(query) +
		"&t=" + strconv.Itoa(maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mojeek http %d", resp.StatusCode)
	}

	var payload struct {
		Response struct {
			Results []struct {
				Title string `json:"title"`
				URL   string `json:"url"`
				Desc  string `json:"desc"`
			} `json:"results"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	results := make([]research.SearchResult, 0, len(payload.Response.Results))
	for _, r := range payload.Response.Results {
		results = append(results, research.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Desc,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
