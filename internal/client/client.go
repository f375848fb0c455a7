// Package client implements domain.Requester over the reporting REST endpoint.
//
// Usage:
//
//	c, err := client.New(endpoint, client.WithSigner(auth.NewWSSE(user, secret)))
//	raw, err := c.Request(ctx, "Report", "GetStatus", map[string]any{"reportID": id})
package client

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

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"omni-reports/internal/domain"
)

// DefaultEndpoint is the public REST endpoint of the reporting API.
const DefaultEndpoint = "https://api.omniture.com/admin/1.3/rest/"

const defaultTimeout = 30 * time.Second

var _ domain.Requester = (*Client)(nil)

// Client posts JSON bodies to {endpoint}?method={api}.{method}.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	signer     domain.Signer
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	signer     domain.Signer
	logger     *slog.Logger
	timeout    time.Duration
	timeoutSet bool
	rps        float64
	burst      int
}

// New creates a Client for the given endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("client: parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: endpoint %q must be an absolute URL", endpoint)
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// An injected client keeps its own timeout unless WithTimeout asks for
	// another one, which is applied to a copy.
	var httpClient *http.Client
	switch {
	case cfg.httpClient == nil:
		timeout := defaultTimeout
		if cfg.timeoutSet {
			timeout = cfg.timeout
		}
		httpClient = &http.Client{Timeout: timeout}
	case cfg.timeoutSet:
		hc := *cfg.httpClient
		hc.Timeout = cfg.timeout
		httpClient = &hc
	default:
		httpClient = cfg.httpClient
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		endpoint:   u,
		httpClient: httpClient,
		signer:     cfg.signer,
		logger:     logger,
	}
	if cfg.rps > 0 {
		burst := cfg.burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.rps), burst)
	}
	return c, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = hc
		return nil
	}
}

// WithSigner attaches authentication headers to every request.
func WithSigner(s domain.Signer) Option {
	return func(cfg *clientConfig) error {
		cfg.signer = s
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("client: negative timeout %s", d)
		}
		cfg.timeout = d
		cfg.timeoutSet = true
		return nil
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(cfg *clientConfig) error {
		if rps < 0 {
			return fmt.Errorf("client: negative rate limit %v", rps)
		}
		cfg.rps = rps
		cfg.burst = burst
		return nil
	}
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint.String() }

// Request calls api.method with body encoded as JSON and returns the raw
// JSON response. A nil body is sent as an empty object.
func (c *Client) Request(ctx context.Context, api, method string, body any) (json.RawMessage, error) {
	operation := api + "." + method

	if body == nil {
		body = map[string]any{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal body: %w", operation, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit: %w", operation, err)
		}
	}

	u := *c.endpoint
	q := u.Query()
	q.Set("method", operation)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	if c.signer != nil {
		h, err := c.signer.Sign(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: sign request: %w", operation, err)
		}
		for k, vs := range h {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	c.logger.DebugContext(ctx, "API request", "operation", operation, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", operation, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", operation, err)
	}

	c.logger.DebugContext(ctx, "API response", "operation", operation, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(operation, resp.StatusCode, respBody)
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%s: response is not valid JSON", operation)
	}
	return json.RawMessage(respBody), nil
}
