package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mickekring/berget-gpt/internal/config"
	apperrors "github.com/mickekring/berget-gpt/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.SearchConfig{BaseURL: srv.URL, APIKey: "tvly-test", MaxResults: 5})
}

func TestSearch_SendsTavilyPayload(t *testing.T) {
	client := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-test", req["api_key"])
		assert.Equal(t, "golang", req["query"])
		assert.Equal(t, "basic", req["search_depth"])
		assert.Equal(t, true, req["include_answer"])
		assert.Equal(t, float64(5), req["max_results"])

		json.NewEncoder(w).Encode(Response{
			Answer: "Go is a programming language.",
			Results: []Result{
				{Title: "Go", Content: "The Go programming language.", URL: "https://go.dev"},
			},
		})
	})

	resp, err := client.Search(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", resp.Answer)
	require.Len(t, resp.Results, 1)
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Search(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestSearch_UpstreamFailure(t *testing.T) {
	client := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
}

func TestFormat_AnswerAndResults(t *testing.T) {
	got := Format(&Response{
		Answer: "Short answer.",
		Results: []Result{
			{Title: "First", Content: "First content.", URL: "https://one.example"},
			{Title: "Second", Content: "Second content.", URL: "https://two.example"},
		},
	})

	assert.Contains(t, got, "**Answer**: Short answer.\n\n")
	assert.Contains(t, got, "**Search Results**:\n")
	assert.Contains(t, got, "1. **First**\n   First content.\n   Source: https://one.example\n\n")
	assert.Contains(t, got, "2. **Second**\n")
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, NoResults, Format(&Response{}))
}
