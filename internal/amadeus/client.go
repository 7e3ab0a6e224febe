// Package amadeus is the adapter to the Amadeus self-service API: credential
// management, authenticated GETs and the two endpoints the service consumes.
package amadeus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/metrics"
)

const (
	DefaultBaseURL = "https://test.api.amadeus.com"
	DefaultTimeout = 20 * time.Second

	maxBodyBytes = 8 << 20
)

// Config holds the Amadeus credentials and endpoint.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

func (c Config) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Client issues authenticated GET requests.  Every request is bounded by the
// configured timeout and abandoned when the caller's context ends; nothing
// is retried.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	tokens  TokenProvider
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewClient wires a client.  httpClient may be nil.
func NewClient(cfg Config, tokens TokenProvider, httpClient *http.Client, m *metrics.Metrics, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: cfg.baseURL(),
		timeout: cfg.timeout(),
		http:    httpClient,
		tokens:  tokens,
		metrics: m,
		log:     log,
	}
}

// Get performs GET <baseURL><path>?<params> with the bearer token attached
// and returns the response body.  Non-2xx answers become *UpstreamError.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, status, err := c.do(ctx, path, params)
	c.metrics.UpstreamLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if status > 0 {
			outcome = strconv.Itoa(status)
		}
		c.log.Warn("amadeus request failed", "path", path, "status", status, "error", err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(path, outcome).Inc()
	return body, err
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, &UpstreamError{Detail: genericFailure, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &UpstreamError{Detail: genericFailure, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &UpstreamError{StatusCode: resp.StatusCode, Detail: genericFailure, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// token revoked or expired early upstream
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, newUpstreamError(resp.StatusCode, body, nil)
	}
	return body, resp.StatusCode, nil
}
