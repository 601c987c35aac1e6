// Package search provides web-search clients satisfying advisor.Searcher.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smallnest/agrigraph/advisor"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	apiKey     string
	endpoint   string
	depth      string
	httpClient *http.Client
}

// TavilyOption customizes a TavilyClient.
type TavilyOption func(*TavilyClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) TavilyOption {
	return func(c *TavilyClient) { c.httpClient = client }
}

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(url string) TavilyOption {
	return func(c *TavilyClient) { c.endpoint = url }
}

// WithSearchDepth selects "basic" or "advanced" search depth.
func WithSearchDepth(depth string) TavilyOption {
	return func(c *TavilyClient) { c.depth = depth }
}

// NewTavilyClient builds a Tavily client for the given API key.
func NewTavilyClient(apiKey string, opts ...TavilyOption) (*TavilyClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily api key is required")
	}
	c := &TavilyClient{
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		depth:      "basic",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type tavilyRequest struct {
	Query       string `json:"query"`
	APIKey      string `json:"api_key"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search runs one query and maps the hits to advisor search results.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]advisor.SearchResult, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:       query,
		APIKey:      c.apiKey,
		SearchDepth: c.depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api status: %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tavily response decode failed: %w", err)
	}

	results := make([]advisor.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, advisor.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return results, nil
}
