// Package edhrec reads commander popularity from EDHREC's JSON pages.
package edhrec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://json.edhrec.com/pages"
	requestTimeout = 10 * time.Second
	requestDelay   = 250 * time.Millisecond
)

// ErrNotFound is returned when EDHREC has no page for the commander.
var ErrNotFound = errors.New("commander not found on EDHREC")

// Config configures a Client. Zero values use the public site.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Client fetches commander pages.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	userAgent   string
	logger      *slog.Logger
}

// NewClient creates a new EDHREC client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "CommanderCraft/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = requestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Every(requestDelay), 2),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		logger:      cfg.Logger.With("component", "edhrec"),
	}
}

type commanderPage struct {
	Container *struct {
		JSONDict *struct {
			Card *struct {
				Name     string `json:"name"`
				NumDecks int    `json:"num_decks"`
			} `json:"card"`
		} `json:"json_dict"`
	} `json:"container"`
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug converts a card name to EDHREC's page name: the front face only,
// lower case, accents and punctuation dropped, words joined by hyphens.
func Slug(name string) string {
	if i := strings.Index(name, "//"); i >= 0 {
		name = name[:i]
	}
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, word := range strings.Fields(strings.ToLower(folded)) {
		var w strings.Builder
		for _, r := range word {
			if r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				w.WriteRune(r)
			}
		}
		if w.Len() == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(w.String())
	}
	return b.String()
}

// CommanderDeckCount returns how many decks EDHREC lists for the commander.
func (c *Client) CommanderDeckCount(ctx context.Context, name string) (int, error) {
	slug := Slug(name)
	if slug == "" {
		return 0, fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/commanders/%s.json", c.baseURL, slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch commander page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var page commanderPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if page.Container == nil || page.Container.JSONDict == nil || page.Container.JSONDict.Card == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	c.logger.Debug("commander deck count", "slug", slug, "decks", page.Container.JSONDict.Card.NumDecks)
	return page.Container.JSONDict.Card.NumDecks, nil
}

// CommanderDeckCounts looks up every name and skips the ones EDHREC cannot
// answer for. It never fails; a nil map means nothing was found.
func (c *Client) CommanderDeckCounts(ctx context.Context, names []string) map[string]int {
	var out map[string]int
	for _, name := range names {
		n, err := c.CommanderDeckCount(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return out
			}
			if !errors.Is(err, ErrNotFound) {
				c.logger.Warn("failed to fetch commander deck count", "name", name, "error", err)
			}
			continue
		}
		if out == nil {
			out = make(map[string]int, len(names))
		}
		out[name] = n
	}
	return out
}
