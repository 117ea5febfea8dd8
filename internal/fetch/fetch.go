// Package fetch performs upstream HTTP requests with browser-mimicking
// headers and a bounded retry loop. The upstream patent site serves
// different markup (or blocks outright) for unrecognized clients, so every
// attempt carries the same fixed desktop User-Agent and Referer.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/splitview/content-service/internal/content"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	defaultReferer   = "https://patents.google.com/"
)

// Client retries GET/HEAD with a constant inter-attempt delay. Both
// network-level failures and non-2xx responses are retried; only the final
// attempt's failure surfaces, naming the HTTP status or network error. The
// delay is deliberately constant, not exponential.
type Client struct {
	HTTPClient *http.Client
	// MaxAttempts includes the initial attempt. Minimum 1; default 3.
	MaxAttempts int
	// RetryDelay between attempts. Default 1s.
	RetryDelay time.Duration

	UserAgent string
	Referer   string
}

// New returns a Client with the default retry bound and browser headers.
func New(timeout time.Duration) *Client {
	return &Client{
		HTTPClient:  &http.Client{Timeout: timeout},
		MaxAttempts: 3,
		RetryDelay:  time.Second,
		UserAgent:   defaultUserAgent,
		Referer:     defaultReferer,
	}
}

// Get fetches url, retrying per the client's bound. On success the
// response body is open and the caller owns closing it.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url)
}

// Head issues a HEAD request with the same headers and retry behavior.
// Redirects are followed; the response's Request.URL is the final target.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	return c.do(ctx, http.MethodHead, url)
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, &content.FetchError{URL: url, Err: err}
		}
		c.setHeaders(req)

		resp, err := c.httpClient().Do(req)
		if err != nil {
			lastErr = &content.FetchError{URL: url, Err: err}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = &content.FetchError{URL: url, Status: resp.StatusCode}
	}
	return nil, lastErr
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) setHeaders(req *http.Request) {
	ua := c.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	referer := c.Referer
	if referer == "" {
		referer = defaultReferer
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", referer)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
