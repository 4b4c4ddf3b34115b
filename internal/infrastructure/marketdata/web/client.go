package web

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/marketdata"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "portfolio-valuator/1.0"
)

// Config tunes the page fetcher.
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	RatePerSecond int // 0 disables rate limiting
}

// Client implements marketdata.PageFetcher over plain HTTP GET requests.
type Client struct {
	rc      *resty.Client
	limiter ratelimit.Limiter
}

// NewClient creates a fetcher; zero config values fall back to defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSecond > 0 {
		limiter = ratelimit.New(cfg.RatePerSecond)
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetLogger(&slogAdapter{logger: slog.Default().With("component", "fetcher")})

	return &Client{
		rc:      rc,
		limiter: limiter,
	}
}

// Fetch performs a GET on locator and returns the body as text.
func (c *Client) Fetch(ctx context.Context, locator string) (string, error) {
	c.limiter.Take()

	resp, err := c.rc.R().
		SetContext(ctx).
		Get(locator)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %w", domain.ErrFetch, locator, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "url", locator)
		}
	}()

	slog.DebugContext(ctx, "Fetched page", "url", locator, "status", resp.Status(), "duration", resp.Duration())

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: GET %s returned status %d", domain.ErrFetch, locator, resp.StatusCode())
	}

	return resp.String(), nil
}

// Close releases idle connections held by the underlying client.
func (c *Client) Close() error {
	return c.rc.Close()
}

// slogAdapter satisfies resty.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *slogAdapter) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l *slogAdapter) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

// Compile-time check that Client implements PageFetcher.
var _ marketdata.PageFetcher = (*Client)(nil)
