package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/storage/models"
	"github.com/ramonehamilton/commander-craft/internal/storage/repository"
)

// DeckSummary is the listing view of a stored deck.
type DeckSummary struct {
	ID            string    `json:"id"`
	Commanders    []string  `json:"commanders"`
	ColorIdentity string    `json:"colorIdentity"`
	TotalCards    int       `json:"totalCards"`
	LandCount     int       `json:"landCount"`
	TotalSpend    float64   `json:"totalSpend"`
	Currency      string    `json:"currency"`
	Provider      string    `json:"provider"`
	WarningCount  int       `json:"warningCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Service provides high-level operations for deck history and the card cache.
type Service struct {
	db       *DB
	decks    repository.GeneratedDeckRepository
	cards    repository.CardCacheRepository
	maxDecks int
}

// NewService creates a new storage service. maxDecks bounds the deck
// history; zero keeps everything.
func NewService(db *DB, maxDecks int) *Service {
	return &Service{
		db:       db,
		decks:    repository.NewGeneratedDeckRepository(db.Conn()),
		cards:    repository.NewCardCacheRepository(db.Conn()),
		maxDecks: maxDecks,
	}
}

// CardCache exposes the card cache repository.
func (s *Service) CardCache() repository.CardCacheRepository {
	return s.cards
}

// SaveDeck stores a generated deck under its ID and trims the history to
// the configured size in the same transaction.
func (s *Service) SaveDeck(ctx context.Context, deck *commander.Deck, provider string) error {
	if deck == nil || deck.ID == "" {
		return fmt.Errorf("deck must have an ID")
	}
	payload, err := json.Marshal(deck)
	if err != nil {
		return fmt.Errorf("failed to encode deck: %w", err)
	}

	lands := 0
	for _, q := range deck.Lands {
		lands += q
	}

	row := &models.GeneratedDeck{
		ID:            deck.ID,
		Commanders:    strings.Join(deck.CommanderNames(), " + "),
		ColorIdentity: string(deck.ColorIdentity),
		TotalCards:    deck.TotalCards(),
		LandCount:     lands,
		Budget:        deck.Budget,
		TotalSpend:    deck.TotalSpend,
		Currency:      deck.Currency,
		Provider:      provider,
		WarningCount:  len(deck.Warnings),
		Payload:       payload,
		CreatedAt:     deck.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		decks := repository.NewGeneratedDeckRepository(tx)
		if err := decks.Create(ctx, row); err != nil {
			return err
		}
		if s.maxDecks > 0 {
			if _, err := decks.TrimTo(ctx, s.maxDecks); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDeck loads a stored deck. Returns nil, nil when absent.
func (s *Service) GetDeck(ctx context.Context, id string) (*commander.Deck, error) {
	row, err := s.decks.GetByID(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	var deck commander.Deck
	if err := json.Unmarshal(row.Payload, &deck); err != nil {
		return nil, fmt.Errorf("failed to decode deck %s: %w", id, err)
	}
	return &deck, nil
}

// ListDecks returns the most recent decks first.
func (s *Service) ListDecks(ctx context.Context, limit int) ([]DeckSummary, error) {
	rows, err := s.decks.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]DeckSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, DeckSummary{
			ID:            r.ID,
			Commanders:    strings.Split(r.Commanders, " + "),
			ColorIdentity: r.ColorIdentity,
			TotalCards:    r.TotalCards,
			LandCount:     r.LandCount,
			TotalSpend:    r.TotalSpend,
			Currency:      r.Currency,
			Provider:      r.Provider,
			WarningCount:  r.WarningCount,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

// DeleteDeck removes a stored deck.
func (s *Service) DeleteDeck(ctx context.Context, id string) error {
	return s.decks.Delete(ctx, id)
}

// Counts reports row counts for the status endpoint.
func (s *Service) Counts(ctx context.Context) (decks, cachedCards int, err error) {
	if decks, err = s.decks.Count(ctx); err != nil {
		return 0, 0, err
	}
	if cachedCards, err = s.cards.Count(ctx); err != nil {
		return 0, 0, err
	}
	return decks, cachedCards, nil
}
