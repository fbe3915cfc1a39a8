// Package client talks to the history recorder over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/retest/internal/match"
	"github.com/verte-zerg/retest/internal/model"
)

// DefaultTimeout bounds each request when no http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// TransportError reports a network failure or a non-2xx response.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client calls the recorder API.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New returns a Client for the recorder at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q (expected http://host:port)", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check submits a pattern and test string for an authoritative verdict.
func (c *Client) Check(ctx context.Context, req model.CheckRequest) (model.CheckResult, error) {
	var res model.CheckResult
	if err := c.do(ctx, "check", http.MethodPost, "/api/check", req, &res); err != nil {
		if invalid := asInvalidPattern(err, req.Pattern); invalid != nil {
			return model.CheckResult{}, invalid
		}
		return model.CheckResult{}, err
	}
	return res, nil
}

// History fetches recorded checks, newest first.
func (c *Client) History(ctx context.Context) ([]model.HistoryEntry, error) {
	return c.HistoryLimit(ctx, 0)
}

// HistoryLimit fetches at most limit entries; zero uses the server default.
func (c *Client) HistoryLimit(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	entries := []model.HistoryEntry{}
	if err := c.do(ctx, "history", http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}

// Filter asks the recorder which items the pattern matches at their start.
func (c *Client) Filter(ctx context.Context, req model.FilterRequest) (model.FilterResult, error) {
	var res model.FilterResult
	if err := c.do(ctx, "filter", http.MethodPost, "/api/filter", req, &res); err != nil {
		if invalid := asInvalidPattern(err, req.Pattern); invalid != nil {
			return model.FilterResult{}, invalid
		}
		return model.FilterResult{}, err
	}
	return res, nil
}

type responseError struct {
	payload model.ErrorResponse
}

func (e *responseError) Error() string {
	return e.payload.Error
}

func asInvalidPattern(err error, pattern string) error {
	te, ok := err.(*TransportError)
	if !ok {
		return nil
	}
	re, ok := te.Err.(*responseError)
	if !ok || re.payload.Code != model.CodeInvalidPattern {
		return nil
	}
	reason := strings.TrimPrefix(re.payload.Error, "Invalid regex: ")
	return &match.InvalidPatternError{Pattern: pattern, Reason: reason}
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var payload model.ErrorResponse
		if jerr := json.Unmarshal(data, &payload); jerr != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    payload.Error,
			Err:        &responseError{payload: payload},
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
