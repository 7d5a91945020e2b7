// Package httpclient is the shared transport for every outbound HTTP call:
// SPARQL endpoints, the Wikidata API, the recognizer and triplet services.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 16 << 20

// Options configures a Client. Zero values mean no timeout, a single
// attempt and no throttling.
type Options struct {
	Timeout           time.Duration
	RetryMax          int
	RequestsPerSecond float64
	UserAgent         string
	Logger            *slog.Logger
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client performs throttled requests over a retryable transport.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New builds a Client from opts.
func New(opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.HTTPClient.Timeout = opts.Timeout
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	} else {
		rc.Logger = nil
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		http:      rc.StandardClient(),
		limiter:   limiter,
		userAgent: opts.UserAgent,
	}
}

// Do sends req after waiting for the rate limiter.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.http.Do(req)
}

// Get issues a GET with the given query parameters and returns the body.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, header http.Header) ([]byte, error) {
	u := endpoint
	if len(params) > 0 {
		u = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	copyHeader(req.Header, header)
	return c.send(req, endpoint)
}

// PostJSON marshals body and POSTs it, returning the response body.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body any, header http.Header) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	copyHeader(req.Header, header)
	return c.send(req, endpoint)
}

func (c *Client) send(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: snippet}
	}
	return data, nil
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
