// Package websearch queries the Brave Search API for creator context.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Brave Search API endpoint.
const DefaultBaseURL = "https://api.search.brave.com/res/v1"

// DefaultResultCount is how many results a search asks for.
const DefaultResultCount = 5

// Result is one web search hit.
type Result struct {
	Title       string
	URL         string
	Description string
}

// Client queries the Brave Search API.
type Client struct {
	token   string
	baseURL string
	count   int
	http    *http.Client
}

// NewClient creates a Brave Search client.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("subscription token is required")
	}
	return &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		count:   DefaultResultCount,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// WithBaseURL points the client at a different API host, used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

type searchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs a web search and returns the top hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(c.count))

	endpoint := c.baseURL + "/web/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	results := make([]Result, 0, len(result.Web.Results))
	for _, hit := range result.Web.Results {
		results = append(results, Result{
			Title:       hit.Title,
			URL:         hit.URL,
			Description: hit.Description,
		})
	}
	return results, nil
}
