package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ramonehamilton/commander-craft/internal/storage/models"
)

// GeneratedDeckRepository handles database operations for generated decks.
type GeneratedDeckRepository interface {
	// Create inserts a new deck.
	Create(ctx context.Context, deck *models.GeneratedDeck) error

	// GetByID retrieves a deck by its ID. Returns nil, nil when absent.
	GetByID(ctx context.Context, id string) (*models.GeneratedDeck, error)

	// ListRecent returns the newest decks first, without payloads.
	ListRecent(ctx context.Context, limit int) ([]*models.GeneratedDeck, error)

	// Delete deletes a deck by its ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored decks.
	Count(ctx context.Context) (int, error)

	// TrimTo deletes all but the newest keep decks.
	TrimTo(ctx context.Context, keep int) (int64, error)
}

type generatedDeckRepository struct {
	db DBTX
}

// NewGeneratedDeckRepository creates a new generated deck repository.
func NewGeneratedDeckRepository(db DBTX) GeneratedDeckRepository {
	return &generatedDeckRepository{db: db}
}

func (r *generatedDeckRepository) Create(ctx context.Context, deck *models.GeneratedDeck) error {
	query := `
		INSERT INTO generated_decks (
			id, commanders, color_identity, total_cards, land_count,
			budget, total_spend, currency, provider, warning_count,
			payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		deck.ID,
		deck.Commanders,
		deck.ColorIdentity,
		deck.TotalCards,
		deck.LandCount,
		deck.Budget,
		deck.TotalSpend,
		deck.Currency,
		deck.Provider,
		deck.WarningCount,
		string(deck.Payload),
		deck.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create generated deck: %w", err)
	}

	return nil
}

func (r *generatedDeckRepository) GetByID(ctx context.Context, id string) (*models.GeneratedDeck, error) {
	query := `
		SELECT id, commanders, color_identity, total_cards, land_count,
			budget, total_spend, currency, provider, warning_count,
			payload, created_at
		FROM generated_decks
		WHERE id = ?
	`

	var d models.GeneratedDeck
	var payload string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.Commanders,
		&d.ColorIdentity,
		&d.TotalCards,
		&d.LandCount,
		&d.Budget,
		&d.TotalSpend,
		&d.Currency,
		&d.Provider,
		&d.WarningCount,
		&payload,
		&d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generated deck: %w", err)
	}
	d.Payload = []byte(payload)

	return &d, nil
}

func (r *generatedDeckRepository) ListRecent(ctx context.Context, limit int) ([]*models.GeneratedDeck, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, commanders, color_identity, total_cards, land_count,
			budget, total_spend, currency, provider, warning_count, created_at
		FROM generated_decks
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated decks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var decks []*models.GeneratedDeck
	for rows.Next() {
		var d models.GeneratedDeck
		if err := rows.Scan(
			&d.ID,
			&d.Commanders,
			&d.ColorIdentity,
			&d.TotalCards,
			&d.LandCount,
			&d.Budget,
			&d.TotalSpend,
			&d.Currency,
			&d.Provider,
			&d.WarningCount,
			&d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan generated deck: %w", err)
		}
		decks = append(decks, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generated decks: %w", err)
	}

	return decks, nil
}

func (r *generatedDeckRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM generated_decks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete generated deck: %w", err)
	}
	return nil
}

func (r *generatedDeckRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_decks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count generated decks: %w", err)
	}
	return n, nil
}

func (r *generatedDeckRepository) TrimTo(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM generated_decks
		WHERE id NOT IN (
			SELECT id FROM generated_decks ORDER BY created_at DESC, id LIMIT ?
		)
	`
	res, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim generated decks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
