package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mickekring/berget-gpt/internal/config"
	apperrors "github.com/mickekring/berget-gpt/internal/errors"
)

// Table names in the record store base.
const (
	usersTable         = "users"
	conversationsTable = "conversations"
	messagesTable      = "messages"
	promptsTable       = "prompts"
)

// Client talks to a NocoDB-style record store: one HTTP base per database,
// tables addressed by name, rows as JSON objects with an "Id" key.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Base       string
}

func New(cfg config.StoreConfig) *Client {
	timeout := config.MustDuration(cfg.Timeout, config.DefaultStoreTimeout)
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = config.DefaultStoreBaseURL
	}
	base := strings.TrimSpace(cfg.Base)
	if base == "" {
		base = config.DefaultStoreBase
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      cfg.Token,
		Base:       base,
	}
}

func (c *Client) tableURL(table string, id string) string {
	u := fmt.Sprintf("%s/api/v1/db/data/v1/%s/%s", c.BaseURL, c.Base, table)
	if id != "" {
		u += "/" + id
	}
	return u
}

// list fetches rows from a table. The store wraps them in a "list" envelope.
func (c *Client) list(ctx context.Context, table string, query url.Values, out interface{}) error {
	u := c.tableURL(table, "")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var envelope struct {
		List json.RawMessage `json:"list"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &envelope); err != nil {
		return err
	}
	if len(envelope.List) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.List, out)
}

func (c *Client) get(ctx context.Context, table, id string, out interface{}) error {
	return c.do(ctx, http.MethodGet, c.tableURL(table, id), nil, out)
}

func (c *Client) create(ctx context.Context, table string, row, out interface{}) error {
	return c.do(ctx, http.MethodPost, c.tableURL(table, ""), row, out)
}

func (c *Client) update(ctx context.Context, table, id string, updates, out interface{}) error {
	return c.do(ctx, http.MethodPatch, c.tableURL(table, id), updates, out)
}

func (c *Client) delete(ctx context.Context, table, id string) error {
	return c.do(ctx, http.MethodDelete, c.tableURL(table, id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, u string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("xc-token", c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: record store: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: record store returned 404", apperrors.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: record store status %d: %s",
			apperrors.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding record store response: %v", apperrors.ErrShapeMismatch, err)
	}
	return nil
}
