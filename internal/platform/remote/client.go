// Package remote implements the storage backend contract over a
// networked document store exposed as a small HTTP API (see
// cmd/syncdocd for the reference server).
//
// Unlike the local backend, this one can fail transiently. Connection
// failures and authentication rejections surface as
// store.ErrBackendUnavailable so the schedule manager can divert the
// mutation into the pending-operation queue instead of losing it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cogodo/spaced-sub003/internal/store"
)

const backendName = "remote"

// Config holds configuration for the remote client.
type Config struct {
	// BaseURL is the root of the document API, e.g. "https://sync.example.com".
	BaseURL string

	// Token is the bearer token presented on every request. An empty
	// token leaves the client permanently unauthenticated, so
	// SupportsSync stays false.
	Token string

	// HTTPClient allows injecting a custom client. Defaults to a client
	// with a 10 second timeout.
	HTTPClient *http.Client

	// Logger for request failures. If nil, logging is disabled.
	Logger *slog.Logger
}

// Client is the remote backend. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger

	// available tracks the result of the last probe or request, so
	// SupportsSync can answer without a network round trip.
	available atomic.Bool
}

var _ store.Backend = (*Client)(nil)

// New creates a remote client. The client starts out unavailable; call
// Probe (or let the first successful request flip it) before relying on
// SupportsSync.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		logger:  logger.With("component", "remote_backend"),
	}, nil
}

// SupportsSync implements store.Backend. It reflects whether the remote
// is currently reachable and the client holds a credential.
func (c *Client) SupportsSync() bool {
	return c.token != "" && c.available.Load()
}

// Probe checks reachability by hitting the health endpoint and updates
// the availability state accordingly.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.available.Store(false)
		return fmt.Errorf("%w: %v", store.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.available.Store(false)
		return fmt.Errorf("%w: health check returned %d", store.ErrBackendUnavailable, resp.StatusCode)
	}
	c.available.Store(true)
	return nil
}

// Get implements store.Backend.
func (c *Client) Get(ctx context.Context, collection, id string) (store.Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.docURL(collection, id), nil)
	if err != nil {
		return nil, store.NewBackendError(backendName, "get", collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var rec store.Record
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
		}
		return rec, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	default:
		return nil, store.NewBackendError(backendName, "get", collection, c.statusError(resp))
	}
}

// Set implements store.Backend. The server applies merge semantics, so
// re-applying an identical Set is idempotent.
func (c *Client) Set(ctx context.Context, collection, id string, rec store.Record) error {
	resp, err := c.do(ctx, http.MethodPut, c.docURL(collection, id), rec)
	if err != nil {
		return store.NewBackendError(backendName, "set", collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return store.NewBackendError(backendName, "set", collection, c.statusError(resp))
	}
	return nil
}

// Update implements store.Backend.
func (c *Client) Update(ctx context.Context, collection, id string, fields store.Record) error {
	resp, err := c.do(ctx, http.MethodPatch, c.docURL(collection, id), fields)
	if err != nil {
		return store.NewBackendError(backendName, "update", collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	default:
		return store.NewBackendError(backendName, "update", collection, c.statusError(resp))
	}
}

// Delete implements store.Backend. The server treats deleting a missing
// document as success.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.docURL(collection, id), nil)
	if err != nil {
		return store.NewBackendError(backendName, "delete", collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return store.NewBackendError(backendName, "delete", collection, c.statusError(resp))
	}
	return nil
}

// List implements store.Backend.
func (c *Client) List(ctx context.Context, collection string) ([]store.KeyedRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, c.collectionURL(collection), nil)
	if err != nil {
		return nil, store.NewBackendError(backendName, "list", collection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, store.NewBackendError(backendName, "list", collection, c.statusError(resp))
	}

	var body struct {
		Documents []struct {
			ID     string       `json:"id"`
			Record store.Record `json:"record"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
	}

	out := make([]store.KeyedRecord, 0, len(body.Documents))
	for _, doc := range body.Documents {
		out = append(out, store.KeyedRecord{ID: doc.ID, Record: doc.Record})
	}
	return out, nil
}

// do issues one request, maintaining availability state. Transport-level
// failures are wrapped in store.ErrBackendUnavailable.
func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.available.Store(false)
		c.logger.Warn("remote request failed", "method", method, "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: %v", store.ErrBackendUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.available.Store(false)
	} else {
		c.available.Store(true)
	}
	return resp, nil
}

// statusError converts an unexpected response into an error, mapping
// auth rejections and server-side failures to ErrBackendUnavailable so
// they are retried through the queue.
func (c *Client) statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: authentication rejected (%d)", store.ErrBackendUnavailable, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: server error (%d)", store.ErrBackendUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) docURL(collection, id string) string {
	return c.baseURL + "/collections/" + url.PathEscape(collection) + "/docs/" + url.PathEscape(id)
}

func (c *Client) collectionURL(collection string) string {
	return c.baseURL + "/collections/" + url.PathEscape(collection)
}
