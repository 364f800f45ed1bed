// Package transport issues aggregator calls through the anonymizing proxy.
//
// DESIGN: The client is built so a direct route cannot exist: the only
// http.Client it holds is constructed with the proxy baked into the
// transport, and New fails outright when no proxy endpoint is configured.
// The outbound request is assembled from scratch - no inbound header
// material ever reaches it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veilsearch/gateway/internal/config"
	"github.com/veilsearch/gateway/internal/monitoring"
)

// ErrorKind classifies transport failures for the caller's retry and
// degradation policy.
type ErrorKind string

const (
	// KindProxyUnavailable: the anonymizing proxy could not be reached.
	KindProxyUnavailable ErrorKind = "proxy_unavailable"
	// KindTimeout: the call exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindUpstream: the aggregator answered with an error. Assumed
	// deterministic (e.g. malformed query), never retried.
	KindUpstream ErrorKind = "upstream_error"
)

// TransportError is the typed failure returned by Search.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether one automatic retry is permitted for this
// failure kind.
func (e *TransportError) Retryable() bool {
	return e.Kind == KindProxyUnavailable || e.Kind == KindTimeout
}

// SearchParams are the aggregator query parameters. Category is the
// aggregator-side category name and is omitted when empty.
type SearchParams struct {
	Query    string
	Language string
	Category string
}

// Client calls the metasearch aggregator exclusively through the
// anonymizing proxy.
type Client struct {
	aggregatorURL string
	httpClient    *http.Client
	maxRetries    int
	retryNotify   func()
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the proxied HTTP client. Test use only; the
// production constructor always builds a proxied one.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithMaxRetries overrides the automatic retry count.
func WithMaxRetries(n int) Option {
	return func(client *Client) {
		client.maxRetries = n
	}
}

// WithRetryNotify registers a callback invoked once per automatic retry.
func WithRetryNotify(fn func()) Option {
	return func(client *Client) {
		client.retryNotify = fn
	}
}

// New creates a transport client routed through proxyURL (socks5:// or
// http://). It fails when the proxy endpoint is absent or unparsable -
// there is no direct-route fallback by construction.
func New(aggregatorURL, proxyURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if aggregatorURL == "" {
		return nil, fmt.Errorf("aggregator URL is required")
	}
	if proxyURL == "" {
		return nil, fmt.Errorf("proxy URL is required: direct aggregator routes are disallowed")
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", proxyURL)
	}

	c := &Client{
		aggregatorURL: aggregatorURL,
		maxRetries:    config.TransportMaxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyURL(parsed),
				ForceAttemptHTTP2:   false,
				MaxIdleConns:        8,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: timeout,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search fetches raw aggregator output for params. On ProxyUnavailable or
// Timeout it retries once; Upstream failures are returned immediately.
// The returned bytes are the aggregator's raw JSON payload.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]byte, error) {
	var lastErr *TransportError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, terr := c.fetch(ctx, params)
		if terr == nil {
			return raw, nil
		}
		lastErr = terr
		if !terr.Retryable() || ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			log.Debug().Str("kind", string(terr.Kind)).Msg("aggregator call failed, retrying once")
			if c.retryNotify != nil {
				c.retryNotify()
			}
		}
	}
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, params SearchParams) ([]byte, *TransportError) {
	target, err := url.Parse(c.aggregatorURL)
	if err != nil {
		return nil, &TransportError{Kind: KindUpstream, Err: fmt.Errorf("invalid aggregator URL: %w", err)}
	}

	q := target.Query()
	q.Set("q", params.Query)
	q.Set("format", "json")
	if params.Language != "" {
		q.Set("language", params.Language)
	}
	if params.Category != "" {
		q.Set("categories", params.Category)
	}
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &TransportError{Kind: KindUpstream, Err: err}
	}
	// The only headers on the wire. Nothing from the inbound request.
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Error bodies sometimes echo the query back; scrub before the
		// text can reach a log line.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransportError{
			Kind: KindUpstream,
			Err:  fmt.Errorf("aggregator returned %d: %s", resp.StatusCode, monitoring.Scrub(body)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	return raw, nil
}

// classify maps a raw network error onto the transport taxonomy.
func classify(err error) *TransportError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TransportError{Kind: KindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &TransportError{Kind: KindTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindTimeout, Err: err}
	}

	// A dial failure means the proxy itself was unreachable: the proxy is
	// the only thing this client ever dials.
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &TransportError{Kind: KindProxyUnavailable, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if errors.As(urlErr.Err, &opErr) && opErr.Op == "dial" {
			return &TransportError{Kind: KindProxyUnavailable, Err: err}
		}
		if urlErr.Timeout() {
			return &TransportError{Kind: KindTimeout, Err: err}
		}
	}

	return &TransportError{Kind: KindUpstream, Err: err}
}
