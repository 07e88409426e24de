package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// Client wraps HTTP GET requests against JSON APIs.
//
// Example usage:
//
//	client := NewClient(WithTimeout(10*time.Second), WithRateLimit(8))
//
//	var out map[string]any
//	if err := client.GetJSON(ctx, "https://api.deezer.com/album/302127", &out); err != nil {
//	    return err
//	}
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter

	maxRetries    int
	retryCooldown float64
	retryExponent float64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit allows at most perSecond requests per second (with a
// burst of the same size). Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = newLimiter(perSecond)
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), int(math.Max(1, perSecond)))
}

// LimitTransport wraps base so that at most perSecond requests per second
// are sent through it. It is meant for API clients that build their own
// requests. A nil base means http.DefaultTransport; a non-positive rate
// returns base unchanged.
func LimitTransport(base http.RoundTripper, perSecond float64) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if perSecond <= 0 {
		return base
	}
	return &limitedTransport{base: base, limiter: newLimiter(perSecond)}
}

type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// WithRetry configures retries: attempt n waits cooldown*exponent^n seconds
// unless the server sends Retry-After.
func WithRetry(maxRetries int, cooldown, exponent float64) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryCooldown = cooldown
		c.retryExponent = exponent
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a new client.
//
// The defaults are a 10 second timeout, no rate limit and 3 retries starting
// at a 0.5s cooldown that doubles each time.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		userAgent:     "music-manager",
		maxRetries:    3,
		retryCooldown: 0.5,
		retryExponent: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Get performs a GET request and returns the response body.
//
// Transient failures (429, 5xx, network timeouts) are retried.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.waitForRetry(ctx, attempt-1, lastErr); err != nil {
				return nil, err
			}
		}

		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetJSON performs a GET request and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(err, "decoding response from %s", url)
	}
	return nil
}

type retryAfterError struct {
	*StatusError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.StatusError }

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", url)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading response from %s", url)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			return nil, &retryAfterError{StatusError: se, after: time.Duration(secs) * time.Second}
		}
		return nil, se
	}
	return body, nil
}

func (c *Client) waitForRetry(ctx context.Context, tries int, lastErr error) error {
	wait := time.Duration(c.retryCooldown * math.Pow(c.retryExponent, float64(tries)) * float64(time.Second))
	var ra *retryAfterError
	if errors.As(lastErr, &ra) {
		wait = ra.after
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
