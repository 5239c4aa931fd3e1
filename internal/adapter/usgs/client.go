package usgs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

// Client fetches and parses the USGS earthquake feed.
// It implements pipeline.BatchFetcher.
type Client struct {
	httpClient  *http.Client
	readTimeout time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates a feed client. connectTimeout bounds dialing and the TLS
// handshake; readTimeout bounds the wait for response headers and every
// stall while reading the body.
func NewClient(connectTimeout, readTimeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConns:          2,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		httpClient:  &http.Client{Transport: transport},
		readTimeout: readTimeout,
		metrics:     metrics,
		logger:      logger,
	}
}

// Fetch performs a GET against endpoint and returns the body on HTTP 200.
// Any failure is logged and yields "".
func (c *Client) Fetch(ctx context.Context, endpoint string) string {
	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		c.logger.Error("earthquake feed request failed", "endpoint", endpoint, "error", err)
		return ""
	}
	return body
}

// FetchEarthquakes fetches endpoint and parses the response. Failures in
// either stage are logged and produce an empty or partial list.
func (c *Client) FetchEarthquakes(ctx context.Context, endpoint string) []domain.Earthquake {
	return c.FetchBatch(ctx, endpoint).Earthquakes
}

// FetchBatch is FetchEarthquakes plus the outcome of the run. FetchedAt is
// left for the caller to stamp.
func (c *Client) FetchBatch(ctx context.Context, endpoint string) domain.Batch {
	batch := domain.Batch{Endpoint: endpoint}

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		c.logger.Error("earthquake feed request failed", "endpoint", endpoint, "error", err)
		batch.Outcome = domain.OutcomeFailed
		return batch
	}

	quakes, err := domain.DecodeEarthquakes(body)
	if err != nil {
		c.logger.Error("problem parsing the earthquake JSON results",
			"endpoint", endpoint,
			"error", err,
			"parsed", len(quakes),
		)
		c.metrics.ParseErrors.Inc()
	}
	c.metrics.RecordsParsed.Add(float64(len(quakes)))

	batch.Earthquakes = quakes
	batch.Outcome = domain.OutcomeFor(quakes, err)
	return batch
}

func (c *Client) fetch(ctx context.Context, endpoint string) (string, error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("malformed_endpoint").Inc()
		return "", err
	}

	start := time.Now()
	defer func() { c.metrics.FetchDuration.Observe(time.Since(start).Seconds()) }()

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("malformed_endpoint").Inc()
		return "", fmt.Errorf("%w: create request: %w", domain.ErrMalformedEndpoint, err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("network_error").Inc()
		return "", fmt.Errorf("%w: %w", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues("http_error").Inc()
		return "", fmt.Errorf("%w: error response code: %d", domain.ErrNetworkFailure, resp.StatusCode)
	}

	// The idle timer cancels the request when the body stalls for longer
	// than readTimeout between reads.
	idle := time.AfterFunc(c.readTimeout, cancel)
	defer idle.Stop()

	data, err := io.ReadAll(&idleReader{r: resp.Body, timer: idle, timeout: c.readTimeout})
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("network_error").Inc()
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return "", fmt.Errorf("%w: read timed out after %s", domain.ErrNetworkFailure, c.readTimeout)
		}
		return "", fmt.Errorf("%w: read body: %w", domain.ErrNetworkFailure, err)
	}

	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	return string(data), nil
}

// parseEndpoint accepts absolute http and https URLs only.
func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrMalformedEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", domain.ErrMalformedEndpoint)
	}
	return u, nil
}

// idleReader pushes the idle deadline forward on every successful read.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}
