// Package source fetches roster documents from the remote site, spacing
// every outbound request by a fixed politeness delay.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/your-org/jailcrawler/internal/config"
	"github.com/your-org/jailcrawler/internal/models"
	"github.com/your-org/jailcrawler/internal/observability"
)

const maxBodyBytes = 16 << 20

// Fetch kinds, used as metric labels.
const (
	KindListing = "listing"
	KindDetail  = "detail"
	KindImage   = "image"
)

type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func NewClient(cfg config.SourceConfig) *Client {
	return NewClientWithHTTP(&http.Client{Timeout: cfg.Timeout}, cfg.RequestDelay, cfg.UserAgent)
}

// NewClientWithHTTP builds a client around an existing http.Client.
// A non-positive delay disables spacing.
func NewClientWithHTTP(hc *http.Client, delay time.Duration, userAgent string) *Client {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Client{
		http:      hc,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

// Fetch GETs a listing or detail document and returns its body.
func (c *Client) Fetch(ctx context.Context, kind, url string) ([]byte, error) {
	body, status, err := c.get(ctx, kind, url)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		observability.FetchErrors.WithLabelValues(kind).Inc()
		return nil, fmt.Errorf("%w: get %s: status %d", models.ErrNetwork, url, status)
	}
	return body, nil
}

// FetchImage GETs a booking photo. A response with a non-success status is an
// error even when it carries bytes.
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	return c.Fetch(ctx, KindImage, url)
}

func (c *Client) get(ctx context.Context, kind, url string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: wait for request slot: %v", models.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request for %s: %v", models.ErrArgument, url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.FetchErrors.WithLabelValues(kind).Inc()
		return nil, 0, fmt.Errorf("%w: get %s: %v", models.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	observability.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.FetchErrors.WithLabelValues(kind).Inc()
		return nil, 0, fmt.Errorf("%w: read %s: %v", models.ErrNetwork, url, err)
	}

	slog.Debug("fetched document", "kind", kind, "url", url, "status", resp.StatusCode, "bytes", len(body))
	return body, resp.StatusCode, nil
}
