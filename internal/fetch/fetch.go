// Package fetch streams a remote URL's body into memory. It is the only
// component that speaks plain HTTP in this repository — binary releases
// are expected to be small (low megabytes), so buffering the whole body
// is acceptable.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrFetchFailed wraps a non-transient HTTP failure: a non-2xx status or
// a body read error after a successful response. Transient transport
// errors (connection refused, timeout) are not wrapped in this sentinel
// — the retry harness above this layer retries those based on the raw
// error, matching the distinction spec.md §4.D draws between "transient
// HTTP errors/transport hiccups" (retried) and "permanent errors, e.g.
// a body-parse failure post-fetch" (surfaced).
var ErrFetchFailed = errors.New("fetch: request failed")

// requestTimeout bounds a single HTTP attempt; it resets on every retry
// harness attempt rather than acting as a global deadline across
// retries (spec.md §5: "no explicit per-call deadlines beyond" the
// harness's elapsed-time cap).
const requestTimeout = 30 * time.Second

// Client fetches binary payloads over plain HTTP GET.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// New creates a Client. logger is named "fetch" for every emitted line.
func New(logger *zap.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: requestTimeout},
		logger: logger.Named("fetch"),
	}
}

// Get issues an HTTP GET against url and returns the full response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	c.logger.Info("fetching release binary", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrFetchFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport-level failure — return unwrapped so the retry harness
		// treats it as transient.
		return nil, fmt.Errorf("fetch: request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %v", ErrFetchFailed, url, err)
	}

	return body, nil
}
