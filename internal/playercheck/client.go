package playercheck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const playersPath = "/api/v1/players"

// ErrUnexpectedStatus is returned when the service answers with a status the
// check did not expect.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the players API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a client for the service rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

// Create posts a new player and returns its ranked view.
func (c *Client) Create(ctx context.Context, pseudo string, points int) (Entry, error) {
	var e Entry
	body := map[string]any{"pseudo": pseudo, "points": points}
	err := c.do(ctx, http.MethodPost, playersPath, body, http.StatusCreated, &e)
	return e, err
}

// Update replaces the points of pseudo and returns its ranked view.
func (c *Client) Update(ctx context.Context, pseudo string, points int) (Entry, error) {
	var e Entry
	body := map[string]any{"points": points}
	err := c.do(ctx, http.MethodPut, playerPath(pseudo), body, http.StatusOK, &e)
	return e, err
}

// Get returns the ranked view of pseudo.
func (c *Client) Get(ctx context.Context, pseudo string) (Entry, error) {
	var e Entry
	err := c.do(ctx, http.MethodGet, playerPath(pseudo), nil, http.StatusOK, &e)
	return e, err
}

// List returns the whole ranking.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := c.do(ctx, http.MethodGet, playersPath, nil, http.StatusOK, &entries)
	return entries, err
}

// DeleteAll removes every player.
func (c *Client) DeleteAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, playersPath, nil, http.StatusNoContent, nil)
}

func playerPath(pseudo string) string {
	return playersPath + "/" + url.PathEscape(pseudo)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
