// Package transport provides the HTTP plumbing shared by reference-catalog
// and enrichment-provider clients: JSON requests with bounded retry,
// exponential backoff on rate limits and server errors, and a fixed
// per-request delay to stay under provider limits.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/logging"
)

const (
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxRetries is the attempt budget per request.
	DefaultMaxRetries = 3
	// maxBackoff caps the exponential backoff between attempts.
	maxBackoff = 10 * time.Second
)

// Client is an HTTP client with retry and pacing. Construct with New.
type Client struct {
	http         *http.Client
	maxRetries   int
	requestDelay time.Duration
	backoffBase  time.Duration
	provider     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithMaxRetries overrides the attempt budget.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRequestDelay sets a fixed pause taken before every request, keeping
// call rates under provider limits.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) {
		c.requestDelay = d
	}
}

// WithBackoffBase overrides the backoff unit, mainly so tests don't sleep.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// New creates a Client for the named provider. The provider name only labels
// errors and log lines.
func New(provider string, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		backoffBase: time.Second,
		provider:    provider,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON sends payload as JSON and decodes the response body into out.
// Rate limits, server errors, and network failures are retried with
// exponential backoff up to the attempt budget; other HTTP errors fail
// immediately as APIError.
func (c *Client) PostJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapParse("json", "request payload", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, body, out)
}

// GetJSON fetches url and decodes the response body into out, with the same
// retry behavior as PostJSON.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.pace(ctx); err != nil {
			return err
		}

		resp, err := c.do(ctx, method, url, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = errors.WrapAPI(c.provider, 0, err)
			c.waitBackoff(ctx, attempt, lastErr)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return errors.WrapIO("read", url, readErr)
			}
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return errors.WrapParse("json", url, err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = errors.NewAPIError(c.provider, resp.StatusCode, resp.Status)
			c.waitBackoff(ctx, attempt, lastErr)

		default:
			return errors.NewAPIError(c.provider, resp.StatusCode, resp.Status)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// pace applies the fixed per-request delay, honoring context cancellation.
func (c *Client) pace(ctx context.Context) error {
	if c.requestDelay <= 0 {
		return nil
	}
	return sleep(ctx, c.requestDelay)
}

// waitBackoff sleeps min(2^attempt backoff units, maxBackoff) before the
// next try.
func (c *Client) waitBackoff(ctx context.Context, attempt int, cause error) {
	wait := c.backoffBase * time.Duration(1<<attempt)
	if wait > maxBackoff {
		wait = maxBackoff
	}
	logging.Ctx(ctx).Warn().
		Err(cause).
		Str("provider", c.provider).
		Int("attempt", attempt).
		Dur("wait", wait).
		Msg("request failed, backing off")
	_ = sleep(ctx, wait)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
