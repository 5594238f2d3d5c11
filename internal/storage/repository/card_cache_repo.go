package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/commander-craft/internal/storage/models"
)

// CardCacheRepository stores card lookup responses keyed by normalized name.
type CardCacheRepository interface {
	Get(ctx context.Context, nameKey string) (*models.CachedCard, error)
	Upsert(ctx context.Context, card *models.CachedCard) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int, error)
}

type cardCacheRepository struct {
	db DBTX
}

// NewCardCacheRepository creates a new card cache repository.
func NewCardCacheRepository(db DBTX) CardCacheRepository {
	return &cardCacheRepository{db: db}
}

// Get returns the cached entry, or nil, nil on a miss.
func (r *cardCacheRepository) Get(ctx context.Context, nameKey string) (*models.CachedCard, error) {
	var c models.CachedCard
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT name_key, name, payload, fetched_at FROM card_cache WHERE name_key = ?`, nameKey,
	).Scan(&c.NameKey, &c.Name, &payload, &c.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached card: %w", err)
	}
	c.Payload = []byte(payload)
	return &c, nil
}

func (r *cardCacheRepository) Upsert(ctx context.Context, card *models.CachedCard) error {
	query := `
		INSERT INTO card_cache (name_key, name, payload, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`
	if _, err := r.db.ExecContext(ctx, query, card.NameKey, card.Name, string(card.Payload), card.FetchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to upsert cached card: %w", err)
	}
	return nil
}

func (r *cardCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM card_cache WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune card cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *cardCacheRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached cards: %w", err)
	}
	return n, nil
}
