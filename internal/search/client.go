// Package search wraps the Exa web search API for finding legal document
// templates on the web and fetching their page content.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veritaslegal/lexdraft-go/internal/oracle"
	"github.com/veritaslegal/lexdraft-go/internal/retry"
)

const defaultBaseURL = "https://api.exa.ai"

// Hit is one web search result.
type Hit struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Client talks to the Exa REST API. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	policy  retry.Policy
}

// Config holds the settings for constructing a Client.
type Config struct {
	// BaseURL overrides the API base URL (tests). Empty means the public API.
	BaseURL string
	// APIKey is the Exa API key.
	APIKey string
	// Retry is the retry policy for transient API failures. Zero value
	// selects the defaults.
	Retry retry.Policy
}

// New constructs a Client. An API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search: EXA_API_KEY not configured")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	policy := cfg.Retry
	if policy.Retryable == nil {
		policy.Retryable = oracle.IsTransient
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		policy:  policy,
	}, nil
}

// searchRequest is the JSON body for POST /search.
type searchRequest struct {
	Query      string          `json:"query"`
	NumResults int             `json:"numResults"`
	Type       string          `json:"type"`
	Contents   contentsOptions `json:"contents"`
}

type contentsOptions struct {
	Text textOptions `json:"text"`
}

type textOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

type searchResponse struct {
	Results []struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		URL           string `json:"url"`
		Text          string `json:"text"`
		PublishedDate string `json:"publishedDate"`
	} `json:"results"`
}

// Search runs a neural web search and returns up to n hits. Each hit carries
// a short text snippet from the page.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Hit, error) {
	if n <= 0 {
		n = 3
	}
	body := searchRequest{
		Query:      query,
		NumResults: n,
		Type:       "neural",
		Contents:   contentsOptions{Text: textOptions{MaxCharacters: 1000}},
	}

	var resp searchResponse
	if err := c.post(ctx, "/search", body, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippet := "No preview available"
		if r.Text != "" {
			snippet = r.Text
			if len(snippet) > 200 {
				snippet = snippet[:200] + "..."
			}
		}
		hits = append(hits, Hit{
			ID:            r.ID,
			Title:         r.Title,
			URL:           r.URL,
			Snippet:       snippet,
			PublishedDate: r.PublishedDate,
		})
	}
	return hits, nil
}

// contentsRequest is the JSON body for POST /contents.
type contentsRequest struct {
	IDs  []string    `json:"ids"`
	Text textOptions `json:"text"`
}

// Contents fetches up to maxChars of page text for a search hit id. The raw
// text is noisy web content; run it through Clean before extraction.
func (c *Client) Contents(ctx context.Context, id string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = 10000
	}
	body := contentsRequest{IDs: []string{id}, Text: textOptions{MaxCharacters: maxChars}}

	var resp searchResponse
	if err := c.post(ctx, "/contents", body, &resp); err != nil {
		return "", fmt.Errorf("search: contents: %w", err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Text == "" {
		return "", fmt.Errorf("search: no content retrieved for %s", id)
	}
	return resp.Results[0].Text, nil
}

// post sends one JSON request with the retry policy applied around the
// round trip.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return oracle.Classify("exa", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return oracle.Classify("exa", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr struct {
				Error string `json:"error"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)
			msg := apiErr.Error
			if msg == "" {
				msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
			}
			return oracle.Classify("exa", fmt.Errorf("%s (HTTP %d)", msg, resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return oracle.Classify("exa", fmt.Errorf("decode response: %w", err))
		}
		return nil
	})
}
