package deckbuilder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

const atraxa = "Atraxa, Praetors' Voice"

func atraxaInput(t *testing.T) (Input, *fakeCards) {
	t.Helper()
	ci := commander.Canonicalize("WUBG")
	lands := commander.PlanLands(floatPtr(37), ci, commander.DefaultLandConfig())
	spells := spellNames(commander.DeckSize - 1 - lands.Total)

	cards := newFakeCards(spellCards(spells)...)
	cards.add(card(atraxa, "Legendary Creature — Phyrexian Angel Horror", []string{"W", "U", "B", "G"}, "12.00"))

	return Input{
		Commanders:    []string{atraxa},
		ColorIdentity: ci,
		Spells:        spells,
		Lands:         lands,
	}, cards
}

func TestMaterialize_AllResolve(t *testing.T) {
	in, cards := atraxaInput(t)
	m := NewMaterializer(cards, &fakeLands{count: 40}, MaterializerConfig{})

	deck, report, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, commander.DeckSize, deck.TotalCards())
	assert.Empty(t, deck.WarningsOf(commander.WarningMissingCard))
	assert.Empty(t, deck.Warnings)
	assert.Len(t, deck.Commanders, 1)
	assert.Len(t, deck.Spells, 62)
	assert.Equal(t, 63, report.Lookups)
	assert.False(t, report.LandFallback)

	basics := 0
	for _, b := range in.Lands.Basics {
		assert.Equal(t, b.Count, deck.Lands[b.Name], b.Name)
		basics += b.Count
	}
	assert.Equal(t, in.Lands.Basic, basics)

	// 12 commander + 62 spells + 24 lands at 0.50, basics free
	assert.InDelta(t, 12+62+float64(in.Lands.NonBasic)*0.5, deck.TotalSpend, 0.001)
	assert.Equal(t, 62, deck.CategoryCounts[commander.CategoryDraw])
	assert.Equal(t, 62, deck.TypeCounts["Instant"])
	assert.Equal(t, 37, deck.TypeCounts["Land"])
	assert.Equal(t, 1, deck.TypeCounts["Creature"])
}

func TestMaterialize_MissingCard(t *testing.T) {
	in, cards := atraxaInput(t)
	delete(cards.cards, commander.NameKey(in.Spells[5]))
	m := NewMaterializer(cards, &fakeLands{count: 40}, MaterializerConfig{})

	deck, report, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 99, deck.TotalCards())
	missing := deck.WarningsOf(commander.WarningMissingCard)
	require.Len(t, missing, 1)
	assert.Equal(t, in.Spells[5], missing[0].Card)
	assert.Len(t, deck.WarningsOf(commander.WarningCardCount), 1)
	assert.Equal(t, 1, report.Missing)
}

func TestMaterialize_DuplicateResolution(t *testing.T) {
	in, cards := atraxaInput(t)
	in.Spells[1] = in.Spells[0] + " // Other Half"
	m := NewMaterializer(cards, &fakeLands{count: 40}, MaterializerConfig{})

	deck, _, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)

	dups := deck.WarningsOf(commander.WarningDuplicateCard)
	require.Len(t, dups, 1)
	assert.Equal(t, in.Spells[0], dups[0].Card)
	assert.Equal(t, 1, deck.Spells[in.Spells[0]])
}

func TestMaterialize_LandShortfall(t *testing.T) {
	in, cards := atraxaInput(t)
	m := NewMaterializer(cards, &fakeLands{count: 2}, MaterializerConfig{})

	deck, report, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, report.LandFallback)
	assert.Equal(t, 1, deck.Lands["Command Tower"])
	assert.Len(t, deck.WarningsOf(commander.WarningLandFallback), 1)
	assert.Len(t, deck.WarningsOf(commander.WarningLandShortfall), 1)
	assert.Equal(t, commander.DeckSize, deck.TotalCards(), "basics absorb the shortfall")
}

func TestMaterialize_LandSearchFailure(t *testing.T) {
	searchErr := errors.New("scryfall unavailable")

	t.Run("degrades to utility lands", func(t *testing.T) {
		in, cards := atraxaInput(t)
		m := NewMaterializer(cards, &fakeLands{err: searchErr}, MaterializerConfig{})

		deck, _, err := m.Materialize(context.Background(), in)
		require.NoError(t, err)
		assert.Len(t, deck.WarningsOf(commander.WarningLandFallback), 2)
		assert.Equal(t, commander.DeckSize, deck.TotalCards())
	})

	t.Run("strict mode aborts", func(t *testing.T) {
		in, cards := atraxaInput(t)
		m := NewMaterializer(cards, &fakeLands{err: searchErr}, MaterializerConfig{StrictNonBasic: true})

		_, _, err := m.Materialize(context.Background(), in)
		var landErr *LandResolutionError
		require.ErrorAs(t, err, &landErr)
		assert.ErrorIs(t, err, searchErr)
		assert.Equal(t, CodeLandResolutionFailed, CodeOf(err))
	})
}

func TestMaterialize_Colorless(t *testing.T) {
	lands := commander.PlanLands(nil, "", commander.DefaultLandConfig())
	spells := spellNames(commander.DeckSize - 1 - lands.Total)
	cards := newFakeCards(spellCards(spells)...)
	cards.add(card("Kozilek, the Great Distortion", "Legendary Creature — Eldrazi", nil, "3.00"))
	landSrc := &fakeLands{count: 40}

	m := NewMaterializer(cards, landSrc, MaterializerConfig{})
	deck, _, err := m.Materialize(context.Background(), Input{
		Commanders: []string{"Kozilek, the Great Distortion"},
		Spells:     spells,
		Lands:      lands,
	})
	require.NoError(t, err)

	assert.Equal(t, lands.Basic, deck.Lands["Wastes"])
	for _, name := range []string{"Plains", "Island", "Swamp", "Mountain", "Forest"} {
		assert.NotContains(t, deck.Lands, name)
	}
	assert.Equal(t, []commander.ColorIdentity{""}, landSrc.cis)
	assert.Equal(t, commander.DeckSize, deck.TotalCards())
}

func TestMaterialize_RespectsConcurrencyLimit(t *testing.T) {
	in, cards := atraxaInput(t)
	cards.delay = 5 * time.Millisecond
	m := NewMaterializer(cards, &fakeLands{count: 40}, MaterializerConfig{Concurrency: 3})

	_, _, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)
	assert.LessOrEqual(t, cards.maxInflight.Load(), int32(3))
	assert.EqualValues(t, 63, cards.calls.Load())
}

func TestMaterialize_LookupTimeout(t *testing.T) {
	in, cards := atraxaInput(t)
	cards.delay = time.Second
	m := NewMaterializer(cards, &fakeLands{count: 40}, MaterializerConfig{LookupTimeout: 10 * time.Millisecond, Concurrency: 64})

	deck, report, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 63, report.Missing)
	assert.Len(t, deck.WarningsOf(commander.WarningMissingCard), 63)
}

func TestMaterialize_Cancelled(t *testing.T) {
	in, cards := atraxaInput(t)
	cards.delay = time.Second
	m := NewMaterializer(cards, &fakeLands{count: 40}, MaterializerConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	deck, _, err := m.Materialize(ctx, in)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, deck)
}

func TestMaterialize_OverBudget(t *testing.T) {
	in, cards := atraxaInput(t)
	in.Budget = 50
	m := NewMaterializer(cards, &fakeLands{count: 40}, MaterializerConfig{})

	deck, _, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)
	over := deck.WarningsOf(commander.WarningOverBudget)
	require.Len(t, over, 1)
	assert.Contains(t, over[0].Message, "50.00 EUR")
}
