package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/mickekring/berget-gpt/internal/errors"
)

const (
	// DefaultCacheTTL bounds how long a discovered tool list is considered
	// fresh before a background refresh is scheduled.
	DefaultCacheTTL = 5 * time.Minute

	refreshTimeout = 30 * time.Second
)

// Lister discovers the provider's tool set.
type Lister interface {
	List(ctx context.Context) ([]Tool, error)
}

// Catalog caches discovered external tools with a freshness window, serving
// stale entries while a refresh runs in the background. The very first call
// after cold start returns an empty list by design: availability over
// latency, the next request picks up whatever the refresh found.
type Catalog struct {
	lister Lister
	ttl    time.Duration

	mu            sync.Mutex
	tools         []Tool
	lastRefreshed time.Time
	refreshing    bool
}

func NewCatalog(lister Lister, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Catalog{lister: lister, ttl: ttl}
}

// Tools returns the cached tool list, kicking off a background refresh when
// the cache is cold or stale. It never blocks on discovery.
func (c *Catalog) Tools(ctx context.Context) []Tool {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := time.Since(c.lastRefreshed) >= c.ttl || c.tools == nil
	if stale && !c.refreshing {
		c.refreshing = true
		go c.backgroundRefresh()
	}

	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Refresh forces a blocking discovery and replaces the cache on success.
func (c *Catalog) Refresh(ctx context.Context) ([]Tool, error) {
	tools, err := c.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	c.store(tools)
	return tools, nil
}

// LastUpdated reports when the cache was last populated; zero when never.
func (c *Catalog) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefreshed
}

func (c *Catalog) backgroundRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	tools, err := c.lister.List(ctx)

	c.mu.Lock()
	c.refreshing = false
	c.mu.Unlock()

	if err != nil {
		slog.Warn("MCP tool discovery failed", "error", err)
		return
	}

	c.store(tools)
	slog.Info("MCP tool catalog refreshed", "tools", len(tools))
}

func (c *Catalog) store(tools []Tool) {
	if tools == nil {
		tools = []Tool{}
	}
	c.mu.Lock()
	c.tools = tools
	c.lastRefreshed = time.Now()
	c.mu.Unlock()
}

// HTTPLister discovers tools by posting a JSON-RPC tools/list request to the
// provider's base endpoint.
type HTTPLister struct {
	HTTPClient *http.Client
	ServerURL  string
	AuthToken  string
}

func NewHTTPLister(serverURL, authToken string) *HTTPLister {
	return &HTTPLister{
		HTTPClient: &http.Client{Timeout: refreshTimeout},
		ServerURL:  strings.TrimSuffix(strings.TrimSpace(serverURL), "/"),
		AuthToken:  authToken,
	}
}

func (l *HTTPLister) List(ctx context.Context) ([]Tool, error) {
	if l.ServerURL == "" {
		return nil, fmt.Errorf("%w: no MCP server configured", apperrors.ErrInvalidInput)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "tools/list",
		"params":  map[string]interface{}{},
		"id":      time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.ServerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if l.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+l.AuthToken)
	}

	client := l.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: refreshTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: tool discovery: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: tool discovery failed: %s", apperrors.ErrUpstream, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: tool discovery: %v", apperrors.ErrUpstream, err)
	}

	var rpc struct {
		Result struct {
			Tools []Tool `json:"tools"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	if err := json.Unmarshal(body, &rpc); err != nil {
		return nil, fmt.Errorf("%w: decode tool list: %v", apperrors.ErrShapeMismatch, err)
	}
	if rpc.Error != nil {
		return nil, fmt.Errorf("%w: tool discovery: %s", apperrors.ErrUpstream, rpc.Error.Message)
	}
	return rpc.Result.Tools, nil
}
