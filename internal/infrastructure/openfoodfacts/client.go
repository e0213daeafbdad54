package openfoodfacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/foodlens/backend/internal/domain"
)

const (
	defaultBaseURL   = "https://world.openfoodfacts.net"
	defaultUserAgent = "FoodLens/1.0 (https://github.com/foodlens/backend)"
	defaultTimeout   = 6 * time.Second
	maxAttempts      = 3
	maxBodyBytes     = 4 << 20 // product records with images and taxonomies run to a few hundred KB
	errorBodyBytes   = 512
)

// ClientConfig holds configuration for the Open Food Facts client
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerMinute is the product-read budget; upstream asks for at most 100
	RequestsPerMinute float64
	Burst             int
	Logger            *slog.Logger
}

// Client handles communication with the Open Food Facts product API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	debug       bool
}

// NewClient creates a new Open Food Facts API client
func NewClient(config ClientConfig) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	perMinute := config.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 100
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 10
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		userAgent:   userAgent,
		rateLimiter: rate.NewLimiter(rate.Limit(perMinute/60), burst),
		logger:      logger.With("component", "openfoodfacts"),
	}
}

// RateLimit returns the steady-state request rate, in requests per second
func (c *Client) RateLimit() rate.Limit {
	return c.rateLimiter.Limit()
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(msg string, args ...any) {
	if c.debug {
		c.logger.Info(msg, args...)
	}
}

// exponentialBackoff returns the wait before the next attempt: 500ms, 1s, 2s...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	return resp, nil
}

// FetchProduct retrieves the raw product record for a barcode.
// Transport failures, 5xx and 429 answers are retried with exponential backoff.
func (c *Client) FetchProduct(ctx context.Context, barcode string) (domain.RawProduct, error) {
	reqURL := fmt.Sprintf("%s/api/v2/product/%s", c.baseURL, url.PathEscape(barcode))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, exponentialBackoff(attempt-1)); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		c.debugLog("fetching product", "barcode", barcode, "attempt", attempt)

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil || !errors.Is(err, domain.ErrUpstreamFailure) {
				return nil, err
			}
			c.logger.Warn("product request failed", "barcode", barcode, "attempt", attempt, "error", err)
			lastErr = err
			continue
		}

		body, err := readLimitedBody(resp.Body, maxBodyBytes)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: read body: %v", domain.ErrUpstreamFailure, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return decodeProduct(body)
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, barcode)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			c.logger.Warn("product API error",
				"barcode", barcode,
				"attempt", attempt,
				"status", resp.StatusCode,
			)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("%w: status %d, body: %s",
				domain.ErrUpstreamFailure, resp.StatusCode, truncate(body, errorBodyBytes))
		}
	}

	c.logger.Error("all retries failed", "barcode", barcode, "error", lastErr)
	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
