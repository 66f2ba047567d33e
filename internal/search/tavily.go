package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mickekring/berget-gpt/internal/config"
	apperrors "github.com/mickekring/berget-gpt/internal/errors"
)

const (
	defaultBaseURL    = "https://api.tavily.com"
	defaultMaxResults = 5

	// NoResults stands in for an empty result list.
	NoResults = "No results found."
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Response is an optional answer summary plus an ordered result list.
type Response struct {
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Searcher is the remote web-search service as seen by the tool executor.
type Searcher interface {
	Search(ctx context.Context, query string) (*Response, error)
}

// Client calls a Tavily-style search API: a single POST carrying the query,
// answering with a summary and up to MaxResults hits.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	MaxResults int
}

func New(cfg config.SearchConfig) *Client {
	timeout := config.MustDuration(cfg.Timeout, config.DefaultSearchTimeout)
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     cfg.APIKey,
		MaxResults: maxResults,
	}
}

func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperrors.ErrInvalidInput)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"api_key":             c.APIKey,
		"query":               query,
		"search_depth":        "basic",
		"include_answer":      true,
		"include_images":      false,
		"include_raw_content": false,
		"max_results":         c.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: search request failed: %s", apperrors.ErrUpstream, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", apperrors.ErrUpstream, err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", apperrors.ErrShapeMismatch, err)
	}
	return &out, nil
}

// Format renders a search response as the markdown blob fed back to the
// model: bolded answer first, then numbered results with their sources.
func Format(resp *Response) string {
	var b strings.Builder

	if resp.Answer != "" {
		fmt.Fprintf(&b, "**Answer**: %s\n\n", resp.Answer)
	}

	if len(resp.Results) > 0 {
		b.WriteString("**Search Results**:\n")
		for i, result := range resp.Results {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, result.Title)
			fmt.Fprintf(&b, "   %s\n", result.Content)
			fmt.Fprintf(&b, "   Source: %s\n\n", result.URL)
		}
	}

	if b.Len() == 0 {
		return NoResults
	}
	return b.String()
}
