package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.scryfall.com"
	rateLimitDelay = 100 * time.Millisecond // 100ms between requests (10 req/sec)
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// Config configures a Client. Zero values fall back to the public API
// defaults.
type Config struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	RateLimitDelay time.Duration
	InitialBackoff time.Duration

	// SearchLanguage is the printing language searched next to English when
	// resolving and searching commanders ("fr", "de", ...). "en" searches
	// English only.
	SearchLanguage string

	// MaxRetries bounds retries of 429, 5xx and network failures. Negative
	// disables retries.
	MaxRetries int
	Logger     *slog.Logger
}

// DefaultConfig returns the settings for the public Scryfall API.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      "CommanderCraft/1.0",
		Timeout:        requestTimeout,
		RateLimitDelay: rateLimitDelay,
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		SearchLanguage: "fr",
	}
}

// Client represents a Scryfall API client with rate limiting.
type Client struct {
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	userAgent      string
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	searchLang     string
	logger         *slog.Logger
}

// NewClient creates a new Scryfall API client.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = def.RateLimitDelay
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = def.MaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.SearchLanguage == "" {
		cfg.SearchLanguage = def.SearchLanguage
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		// Rate limiter: 1 request per delay, shared by every caller of this client
		rateLimiter:    rate.NewLimiter(rate.Every(cfg.RateLimitDelay), 1),
		userAgent:      cfg.UserAgent,
		baseURL:        cfg.BaseURL,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		searchLang:     strings.ToLower(cfg.SearchLanguage),
		logger:         cfg.Logger.With("component", "scryfall"),
	}
}

// SearchOptions controls ordering and de-duplication of search results.
type SearchOptions struct {
	Order  string // e.g. "edhrec", "name", "random"
	Unique string // "cards", "art" or "prints"
	Page   int
}

// SearchCards performs a full-text search for cards.
// A query that matches nothing returns an empty result, not an error.
func (c *Client) SearchCards(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	if opts.Order != "" {
		params.Set("order", opts.Order)
	}
	if opts.Unique != "" {
		params.Set("unique", opts.Unique)
	}
	if opts.Page > 1 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	u := fmt.Sprintf("%s/cards/search?%s", c.baseURL, params.Encode())

	var result SearchResult
	if err := c.doRequest(ctx, u, &result); err != nil {
		if IsNotFound(err) {
			return &SearchResult{Object: "list"}, nil
		}
		return nil, fmt.Errorf("failed to search cards with query '%s': %w", query, err)
	}

	return &result, nil
}

// RandomCard returns one random card matching query.
func (c *Client) RandomCard(ctx context.Context, query string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/random", c.baseURL)
	if query != "" {
		u += "?q=" + url.QueryEscape(query)
	}

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get random card: %w", err)
	}

	return &card, nil
}

// NamedExact retrieves a card by its exact English name.
func (c *Client) NamedExact(ctx context.Context, name string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/named?exact=%s", c.baseURL, url.QueryEscape(name))

	var card Card
	if err := c.doRequest(ctx, u, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %q: %w", name, err)
	}

	return &card, nil
}

// doRequest performs an HTTP request with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("HTTP request failed: %w", err)

			// Retry on network errors
			if attempt < c.maxRetries {
				c.logger.Debug("retrying after network error", "url", url, "attempt", attempt+1, "error", err)
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		retry, err := c.handleResponse(resp, url, result)
		if !retry {
			return err
		}
		lastErr = err

		if attempt < c.maxRetries {
			wait := backoff
			if d, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				wait = d
			}
			c.logger.Debug("retrying", "url", url, "attempt", attempt+1, "wait", wait, "error", err)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// handleResponse decodes resp into result. It reports retry=true when the
// server asked us to slow down or failed on its side.
func (c *Client) handleResponse(resp *http.Response, url string, result interface{}) (bool, error) {
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return false, nil

	case http.StatusTooManyRequests:
		return true, fmt.Errorf("rate limited (HTTP 429)")

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return true, fmt.Errorf("server error (HTTP %d)", resp.StatusCode)

	case http.StatusNotFound:
		return false, &NotFoundError{URL: url}

	default:
		body, _ := io.ReadAll(resp.Body)

		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			return false, &apiErr
		}

		return false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}

func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
