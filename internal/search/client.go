// Package search queries a SearxNG-compatible JSON search endpoint for web
// and image results.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gopost/gopost/internal/logger"
)

const defaultTimeout = 15 * time.Second

// Result is one web-search hit.
type Result struct {
	URL     string
	Title   string
	Snippet string
}

// Client talks to the search backend.
type Client struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// NewClient creates a search client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

type searchResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
		ImgSrc  string `json:"img_src"`
	} `json:"results"`
}

// Search returns up to maxResults web hits for the query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	resp, err := c.query(ctx, query, "")
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, maxResults)
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{URL: r.URL, Title: r.Title, Snippet: r.Content})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

// SearchImage returns the URL of the first image hit for the query, or an
// empty string when nothing was found.
func (c *Client) SearchImage(ctx context.Context, query string) (string, error) {
	resp, err := c.query(ctx, query, "images")
	if err != nil {
		return "", err
	}

	for _, r := range resp.Results {
		if r.ImgSrc != "" {
			return r.ImgSrc, nil
		}
	}
	return "", nil
}

func (c *Client) query(ctx context.Context, query, category string) (*searchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if category != "" {
		params.Set("categories", category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: status %d", query, resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &result, nil
}
