package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/CalverLabs/drsidx/models"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 5 * time.Second
)

var (
	// ErrNotFound covers every terminal non-200 status: the object either
	// does not exist or cannot be served, and retrying will not help.
	ErrNotFound = errors.New("object not found")
	// ErrRetriesExhausted means the retry budget ran out against a busy or
	// unreachable service.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Config carries the settings for a resolution service client.
type Config struct {
	BaseURL    string        // service root, e.g. https://locate.be-md.ncbi.nlm.nih.gov
	MaxRetries int           // total attempts per request, default 3
	RetryDelay time.Duration // fixed wait between attempts, default 5s
	Timeout    time.Duration // per-request timeout, default 30s
	IncludeETL bool          // pass etl=true on idx lookups
	Flatten    bool          // flatten extracted output paths under DRS_Import/
	Logger     *slog.Logger
}

// Client talks to the resolution service. It owns two process-lifetime
// caches: one for fetched object descriptors and one for blob online
// verdicts, so no object is fetched and no blob is probed more than once
// per client. Instances are independent; nothing is shared between them.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	includeETL bool
	flatten    bool
	logger     *slog.Logger

	objects *ttlcache.Cache[string, *models.DrsObject]
	status  *ttlcache.Cache[string, bool]
}

// NewClient creates a client for the resolution service.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL '%s': %w", cfg.BaseURL, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.WithGroup("drs_client")

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	// No TTL on either cache: entries live until the client is closed.
	objects := ttlcache.New(
		ttlcache.WithTTL[string, *models.DrsObject](ttlcache.NoTTL),
		ttlcache.WithDisableTouchOnHit[string, *models.DrsObject](),
	)
	status := ttlcache.New(
		ttlcache.WithTTL[string, bool](ttlcache.NoTTL),
		ttlcache.WithDisableTouchOnHit[string, bool](),
	)
	go objects.Start()
	go status.Start()

	logger.Debug("DRS client initialized",
		"base_url", baseURL.String(),
		"max_retries", maxRetries,
		"retry_delay", retryDelay)

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		includeETL: cfg.IncludeETL,
		flatten:    cfg.Flatten,
		logger:     logger,
		objects:    objects,
		status:     status,
	}, nil
}

// Close releases the cache janitors. The client must not be used afterwards.
func (c *Client) Close() {
	c.objects.Stop()
	c.status.Stop()
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// get issues a GET against the service with bounded retry. A 200 returns the
// response with its body open. Busy statuses (502/503/504) and network
// errors share one retry budget with a fixed delay between attempts; any
// other status is terminal and maps to ErrNotFound without another attempt.
func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request for %s: %w", reqURL, err)
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode == http.StatusOK {
				return resp, nil
			}
			if !retryableStatus(resp.StatusCode) {
				resp.Body.Close()
				c.logger.Warn("Terminal status from service",
					"url", reqURL, "status_code", resp.StatusCode)
				return nil, fmt.Errorf("server returned status %d for %s: %w",
					resp.StatusCode, reqURL, ErrNotFound)
			}
			resp.Body.Close()
			c.logger.Warn("Service busy, will retry",
				"url", reqURL, "status_code", resp.StatusCode,
				"attempt", attempt, "max_attempts", c.maxRetries)
		} else {
			// Network-level failures get the same treatment as a busy server.
			c.logger.Warn("Request failed, will retry",
				"url", reqURL, "error", err,
				"attempt", attempt, "max_attempts", c.maxRetries)
		}

		if attempt == c.maxRetries {
			break
		}

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("cancelled while waiting to retry %s: %w", reqURL, ctx.Err())
		}
	}

	c.logger.Error("Retries exhausted", "url", reqURL, "attempts", c.maxRetries)
	return nil, ErrRetriesExhausted
}

// expected reports whether err is one of the lookup failures the engine
// absorbs into sentinel results rather than propagating.
func expected(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRetriesExhausted)
}

// objectURL builds the metadata endpoint URL for a DRS object id.
func (c *Client) objectURL(drsID string, expand bool) string {
	ref := &url.URL{Path: "ga4gh/drs/v1/objects/" + drsID}
	u := c.baseURL.ResolveReference(ref)
	if expand {
		q := u.Query()
		q.Set("expand", "true")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
