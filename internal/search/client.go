package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.tavily.com"
	DefaultTimeout = 30 * time.Second
)

// Client is a Tavily Search API client used for SERP fetching and competitor
// content extraction.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new search client. baseURL is overridable for tests.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
}

// Result is one SERP entry
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// SERPResponse is the structured result of a keyword search
type SERPResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Answer  string   `json:"answer,omitempty"`
}

// Search fetches SERP results for a keyword
func (c *Client) Search(ctx context.Context, keyword string, maxResults int) (*SERPResponse, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	payload := map[string]interface{}{
		"api_key":         c.apiKey,
		"query":           keyword,
		"max_results":     maxResults,
		"include_answer":  true,
		"include_content": true,
	}

	var raw struct {
		Results []Result `json:"results"`
		Answer  string   `json:"answer"`
	}
	if err := c.post(ctx, "/search", payload, &raw); err != nil {
		return nil, fmt.Errorf("search for %q failed: %w", keyword, err)
	}

	c.logger.Info("search completed", "keyword", keyword, "results", len(raw.Results))

	return &SERPResponse{
		Query:   keyword,
		Results: raw.Results,
		Answer:  raw.Answer,
	}, nil
}

// ExtractedPage is the full content pulled from one URL
type ExtractedPage struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"raw_content"`
	WordCount int    `json:"word_count"`
}

// Extract pulls full page content from a URL via the extract endpoint.
// Returns nil without error when the page yields no content.
func (c *Client) Extract(ctx context.Context, pageURL string) (*ExtractedPage, error) {
	payload := map[string]interface{}{
		"api_key": c.apiKey,
		"urls":    []string{pageURL},
	}

	var raw struct {
		Results []ExtractedPage `json:"results"`
	}
	if err := c.post(ctx, "/extract", payload, &raw); err != nil {
		return nil, fmt.Errorf("extract of %q failed: %w", pageURL, err)
	}

	if len(raw.Results) == 0 || raw.Results[0].Content == "" {
		c.logger.Warn("no content extracted", "url", pageURL)
		return nil, nil
	}

	page := raw.Results[0]
	page.URL = pageURL
	page.WordCount = len(strings.Fields(page.Content))
	return &page, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
