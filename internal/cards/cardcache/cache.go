// Package cardcache puts a SQLite-backed cache in front of exact-name card
// lookups and collapses concurrent lookups of the same name.
package cardcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/commander-craft/internal/cards/scryfall"
	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/storage/models"
	"github.com/ramonehamilton/commander-craft/internal/storage/repository"
)

// Lookup resolves a card by its exact name.
type Lookup interface {
	NamedExact(ctx context.Context, name string) (*scryfall.Card, error)
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Shared   int64 `json:"shared"`
	Failures int64 `json:"failures"`
}

// Cache wraps a Lookup with persistent storage. Not-found results are not
// cached.
type Cache struct {
	upstream Lookup
	repo     repository.CardCacheRepository
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time

	hits, misses, shared, failures atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache. A nil repo disables persistence but keeps request
// collapsing. A ttl of zero never expires entries.
func New(upstream Lookup, repo repository.CardCacheRepository, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		upstream: upstream,
		repo:     repo,
		ttl:      ttl,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "cardcache")
	return c
}

// NamedExact returns the cached card for name, fetching it upstream on a
// miss or when the entry is stale.
func (c *Cache) NamedExact(ctx context.Context, name string) (*scryfall.Card, error) {
	key := commander.NameKey(name)
	if key == "" {
		return nil, fmt.Errorf("empty card name")
	}

	if card := c.load(ctx, key); card != nil {
		c.hits.Add(1)
		return card, nil
	}
	c.misses.Add(1)

	// The shared fetch must outlive any single caller's cancellation; each
	// caller still stops waiting when its own context ends.
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout(ctx))
		defer cancel()
		card, err := c.upstream.NamedExact(fetchCtx, name)
		if err != nil {
			return nil, err
		}
		c.store(fetchCtx, key, card)
		return card, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			c.failures.Add(1)
			return nil, res.Err
		}
		card := *res.Val.(*scryfall.Card)
		return &card, nil
	}
}

// Prune deletes entries older than the TTL.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	if c.repo == nil || c.ttl <= 0 {
		return 0, nil
	}
	return c.repo.DeleteOlderThan(ctx, c.now().Add(-c.ttl))
}

// PruneInterval is how often RunPruner sweeps for a given TTL: half the TTL,
// at least a minute and at most a day.
func PruneInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/2, time.Minute), 24*time.Hour)
}

// RunPruner prunes once, then every interval until ctx is done. It returns
// immediately when entries never expire.
func (c *Cache) RunPruner(ctx context.Context, interval time.Duration) {
	if c.repo == nil || c.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = PruneInterval(c.ttl)
	}

	prune := func() {
		n, err := c.Prune(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			c.logger.Warn("card cache prune failed", "error", err)
		case n > 0:
			c.logger.Info("pruned card cache", "removed", n)
		}
	}
	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-ctx.Done():
			return
		}
	}
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Shared:   c.shared.Load(),
		Failures: c.failures.Load(),
	}
}

func (c *Cache) load(ctx context.Context, key string) *scryfall.Card {
	if c.repo == nil {
		return nil
	}
	entry, err := c.repo.Get(ctx, key)
	if err != nil {
		c.logger.Warn("card cache read failed", "key", key, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	if c.ttl > 0 && c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil
	}
	var card scryfall.Card
	if err := json.Unmarshal(entry.Payload, &card); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return nil
	}
	return &card
}

func (c *Cache) store(ctx context.Context, key string, card *scryfall.Card) {
	if c.repo == nil {
		return
	}
	payload, err := json.Marshal(card)
	if err != nil {
		return
	}
	err = c.repo.Upsert(ctx, &models.CachedCard{
		NameKey:   key,
		Name:      card.Name,
		Payload:   payload,
		FetchedAt: c.now(),
	})
	if err != nil {
		c.logger.Warn("card cache write failed", "key", key, "error", err)
	}
}

const defaultFetchTimeout = 30 * time.Second

func fetchTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return defaultFetchTimeout
}
