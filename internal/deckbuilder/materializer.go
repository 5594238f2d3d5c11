package deckbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/commander-craft/internal/cards/scryfall"
	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// CardLookup resolves a card by exact name.
type CardLookup interface {
	NamedExact(ctx context.Context, name string) (*scryfall.Card, error)
}

// MaterializerConfig tunes card resolution.
type MaterializerConfig struct {
	Concurrency    int
	LookupTimeout  time.Duration
	Currency       string
	StrictNonBasic bool
	Logger         *slog.Logger
}

// DefaultMaterializerConfig returns the stock settings.
func DefaultMaterializerConfig() MaterializerConfig {
	return MaterializerConfig{
		Concurrency:   8,
		LookupTimeout: 15 * time.Second,
		Currency:      scryfall.CurrencyEUR,
	}
}

// Materializer turns a validated name list and a land plan into a Deck.
type Materializer struct {
	cards  CardLookup
	lands  LandSource
	cfg    MaterializerConfig
	logger *slog.Logger
}

// NewMaterializer creates a Materializer. Zero config values take the
// defaults.
func NewMaterializer(cards CardLookup, lands LandSource, cfg MaterializerConfig) *Materializer {
	def := DefaultMaterializerConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{cards: cards, lands: lands, cfg: cfg, logger: logger.With("component", "materializer")}
}

// Input is everything the materializer needs for one deck.
type Input struct {
	Commanders    []string
	ColorIdentity commander.ColorIdentity
	Spells        []string
	Lands         commander.LandPlan
	Budget        float64
}

// Report carries figures about a materialization that are not part of the
// deck itself.
type Report struct {
	Lookups      int
	Missing      int
	LandFallback bool
}

type lookupResult struct {
	requested string
	card      *scryfall.Card
	err       error
}

// Materialize resolves every card and assembles the deck. Unresolvable
// cards become warnings. The only errors are cancellation and, in strict
// mode, a failed land search.
func (m *Materializer) Materialize(ctx context.Context, in Input) (*commander.Deck, Report, error) {
	var report Report

	deck := &commander.Deck{
		ColorIdentity: in.ColorIdentity,
		Spells:        make(map[string]int),
		Lands:         make(map[string]int),
		Budget:        in.Budget,
		Currency:      m.cfg.Currency,
		CreatedAt:     time.Now().UTC(),
	}

	commanderSet := commander.NewNameSet(in.Commanders...)
	spellSet := commander.NewNameSet(in.Spells...)

	exclude := commander.NewNameSet(in.Commanders...)
	for _, s := range in.Spells {
		exclude.Add(s)
	}

	landRes := resolveNonBasics(ctx, m.lands, in.ColorIdentity, in.Lands.NonBasic, exclude, m.cfg.Currency)
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}
	if landRes.searchErr != nil {
		if m.cfg.StrictNonBasic {
			return nil, report, landRes.searchErr
		}
		m.logger.Warn("non-basic land search failed, using utility lands", "error", landRes.searchErr)
		deck.AddWarning(commander.WarningLandFallback, "", "%v", landRes.searchErr)
	}
	if len(landRes.fallback) > 0 {
		report.LandFallback = true
		deck.AddWarning(commander.WarningLandFallback, "", "filled %d non-basic slots with utility lands: %s",
			len(landRes.fallback), strings.Join(landRes.fallback, ", "))
	}

	landPlan := in.Lands
	if got := len(landRes.cards); got < landPlan.NonBasic {
		deck.AddWarning(commander.WarningLandShortfall, "", "found %d of %d non-basic lands; %d extra basics added",
			got, landPlan.NonBasic, landPlan.NonBasic-got)
		landPlan = landPlan.WithNonBasic(got)
	}

	landSet := commander.NewNameSet()
	for _, rec := range landRes.cards {
		landSet.Add(rec.Name)
	}

	requested := make([]string, 0, len(in.Commanders)+len(in.Spells))
	requested = append(requested, in.Commanders...)
	requested = append(requested, in.Spells...)

	results, err := m.lookupAll(ctx, requested)
	if err != nil {
		return nil, report, err
	}
	report.Lookups = len(results)

	seen := commander.NewNameSet()
	for _, res := range results {
		if res.err != nil || res.card == nil {
			report.Missing++
			m.logger.Debug("card lookup failed", "card", res.requested, "error", res.err)
			deck.AddWarning(commander.WarningMissingCard, res.requested, "could not resolve %q", res.requested)
			continue
		}
		rec := res.card.ToRecord(m.cfg.Currency)
		if !seen.Add(rec.Name) || landSet.Has(rec.Name) {
			deck.AddWarning(commander.WarningDuplicateCard, rec.Name, "%q resolved more than once and was dropped", rec.Name)
			continue
		}

		switch {
		case commanderSet.Has(rec.Name):
			deck.Commanders = append(deck.Commanders, rec)
		case spellSet.Has(rec.Name):
			deck.Spells[rec.Name] = 1
			deck.SpellCards = append(deck.SpellCards, rec)
		case landSet.Has(rec.Name), rec.IsLand():
			deck.Lands[rec.Name] = 1
			deck.LandCards = append(deck.LandCards, rec)
		default:
			deck.Spells[rec.Name] = 1
			deck.SpellCards = append(deck.SpellCards, rec)
		}
	}

	for _, rec := range landRes.cards {
		deck.Lands[rec.Name]++
		deck.LandCards = append(deck.LandCards, rec)
	}
	for _, alloc := range landPlan.Basics {
		if alloc.Count <= 0 {
			continue
		}
		deck.Lands[alloc.Name] += alloc.Count
		deck.LandCards = append(deck.LandCards, commander.BasicLandRecord(alloc.Symbol))
	}

	m.finish(deck)
	return deck, report, nil
}

// lookupAll resolves names concurrently. A failed lookup never cancels its
// siblings; only cancellation of ctx aborts the batch.
func (m *Materializer) lookupAll(ctx context.Context, names []string) ([]lookupResult, error) {
	results := make([]lookupResult, len(names))

	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = lookupResult{requested: name, err: ctx.Err()}
				return nil
			}
			lctx, cancel := context.WithTimeout(ctx, m.cfg.LookupTimeout)
			defer cancel()
			card, err := m.cards.NamedExact(lctx, name)
			results[i] = lookupResult{requested: name, card: card, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// finish fills in the derived totals and the count and budget warnings.
func (m *Materializer) finish(deck *commander.Deck) {
	var spend float64
	for _, c := range deck.Commanders {
		spend += c.Price
	}
	for _, c := range deck.SpellCards {
		spend += c.Price * float64(deck.Spells[c.Name])
	}
	for _, c := range deck.LandCards {
		if commander.IsBasicLandName(c.Name) {
			continue
		}
		spend += c.Price * float64(deck.Lands[c.Name])
	}
	deck.TotalSpend = commander.RoundCents(spend)

	deck.CategoryCounts = commander.CountCategories(deck.SpellCards)
	deck.TypeCounts = make(map[string]int)
	for _, c := range deck.Commanders {
		deck.TypeCounts[commander.PrimaryType(c.TypeLine)]++
	}
	for _, c := range deck.SpellCards {
		deck.TypeCounts[commander.PrimaryType(c.TypeLine)] += deck.Spells[c.Name]
	}
	for _, c := range deck.LandCards {
		deck.TypeCounts["Land"] += deck.Lands[c.Name]
	}

	if total := deck.TotalCards(); total != commander.DeckSize {
		deck.AddWarning(commander.WarningCardCount, "", "deck has %d cards instead of %d", total, commander.DeckSize)
	}
	if deck.Budget > 0 && deck.TotalSpend > deck.Budget {
		deck.AddWarning(commander.WarningOverBudget, "", "deck costs %s, over the %s budget",
			formatMoney(deck.TotalSpend, deck.Currency), formatMoney(deck.Budget, deck.Currency))
	}
}

func formatMoney(v float64, currency string) string {
	return fmt.Sprintf("%.2f %s", v, strings.ToUpper(currency))
}
