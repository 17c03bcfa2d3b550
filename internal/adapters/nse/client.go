// Package nse implements the exchange's bulk and block deal feeds.
package nse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"mfDealFlow/internal/ports"
)

const (
	DefaultHomeURL         = "https://www.nseindia.com"
	DefaultReferer         = "https://www.nseindia.com/"
	DefaultUserAgent       = "Mozilla/5.0"
	DefaultBulkArchiveURL  = "https://archives.nseindia.com/content/equities/bulk.csv"
	DefaultBlockArchiveURL = "https://archives.nseindia.com/content/equities/block.csv"
	DefaultBulkAPIURL      = "https://www.nseindia.com/api/bulk-deals"
	DefaultBlockAPIURL     = "https://www.nseindia.com/api/block-deals"

	maxBodyBytes = 32 << 20
)

// ClientConfig holds the HTTP settings shared by every NSE source.
type ClientConfig struct {
	HomeURL   string
	UserAgent string
	Referer   string
	Timeout   time.Duration
	Logger    ports.Logger
}

// Client is the shared HTTP session. Cookies set by WarmUp are replayed on
// every later request through the jar.
type Client struct {
	http      *http.Client
	homeURL   string
	userAgent string
	referer   string
	logger    ports.Logger
}

// NewClient creates a Client with its own cookie jar.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for NSE client")
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = DefaultHomeURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout, Jar: jar},
		homeURL:   cfg.HomeURL,
		userAgent: cfg.UserAgent,
		referer:   cfg.Referer,
		logger:    cfg.Logger,
	}, nil
}

// WarmUp visits the landing page so the session cookies are set before the
// JSON API is queried.
func (c *Client) WarmUp(ctx context.Context) error {
	_, err := c.get(ctx, c.homeURL, "text/html,*/*")
	if err != nil {
		c.logger.Warn(ctx, "Session warm-up failed", map[string]interface{}{"url": c.homeURL, "error": err.Error()})
		return err
	}
	c.logger.Debug(ctx, "Session warmed up", map[string]interface{}{"url": c.homeURL})
	return nil
}

// get issues one GET and returns the body. Transport errors, non-200
// statuses and blank bodies are all reported as ErrSourceUnavailable.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w: %w", url, ports.ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Referer", c.referer)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w: %w", url, ports.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s returned status %d: %w", url, resp.StatusCode, ports.ErrSourceUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body from %s: %w: %w", url, ports.ErrSourceUnavailable, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%s returned an empty body: %w", url, ports.ErrSourceUnavailable)
	}
	return body, nil
}
