// Package transport provides the HTTP client used to replay queued actions
// and fetch remote snapshots, with errors shaped so callers can distinguish
// "could not reach the server" from "the server explicitly rejected this".
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Doer issues one remote call. Implemented by Client; tests substitute fakes.
type Doer interface {
	// Do sends body (JSON-encoded, may be nil) and decodes a 2xx response
	// into out (may be nil). Non-2xx responses yield a *StatusError.
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

// StatusError is a structured rejection from the remote API.
type StatusError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote rejected with %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote rejected with %d", e.Status)
}

// AsStatus extracts a StatusError from an error chain.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsTransient reports whether retrying err later is meaningful. Connectivity
// failures, timeouts and 5xx responses are transient; a structured 4xx
// rejection is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := AsStatus(err); ok {
		return se.Status >= 500
	}
	return true
}

type idempotencyKeyType struct{}

// WithIdempotencyKey attaches an idempotency key to the request context; the
// client forwards it as the Idempotency-Key header.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyType{}, key)
}

// Config holds transport configuration.
type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration // per-request timeout (default: 15s)
}

// Client is the concrete HTTP transport.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a transport client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Do implements Doer.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if key, ok := ctx.Value(idempotencyKeyType{}).(string); ok && key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// decodeError builds a StatusError from a non-2xx response. A body that is
// not the expected {"code","message"} shape still yields a StatusError with
// the status code alone.
func (c *Client) decodeError(resp *http.Response) error {
	se := &StatusError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, se)
	}
	return se
}
