package deckbuilder

import (
	"context"

	"github.com/ramonehamilton/commander-craft/internal/cards/scryfall"
	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// LandSource searches non-basic lands for an identity.
type LandSource interface {
	NonBasicLands(ctx context.Context, ci commander.ColorIdentity, limit int) ([]scryfall.Card, error)
}

// utilityLand is a colorless-identity land usable in any deck.
type utilityLand struct {
	name      string
	typeLine  string
	oracle    string
	minColors int
}

// utilityLands back-fill non-basic slots when the search comes up short.
var utilityLands = []utilityLand{
	{name: "Command Tower", typeLine: "Land", oracle: "{T}: Add one mana of any color in your commander's color identity.", minColors: 2},
	{name: "Exotic Orchard", typeLine: "Land", oracle: "{T}: Add one mana of any color that a land an opponent controls could produce.", minColors: 2},
	{name: "Path of Ancestry", typeLine: "Land", oracle: "Path of Ancestry enters tapped.\n{T}: Add one mana of any color in your commander's color identity."},
	{name: "Myriad Landscape", typeLine: "Land", oracle: "Myriad Landscape enters tapped.\n{T}: Add {C}."},
	{name: "Reliquary Tower", typeLine: "Land", oracle: "You have no maximum hand size.\n{T}: Add {C}."},
	{name: "Rogue's Passage", typeLine: "Land", oracle: "{T}: Add {C}.\n{4}, {T}: Target creature can't be blocked this turn."},
	{name: "War Room", typeLine: "Land", oracle: "{T}: Add {C}."},
	{name: "Buried Ruin", typeLine: "Land", oracle: "{T}: Add {C}."},
	{name: "Ash Barrens", typeLine: "Land", oracle: "{T}: Add {C}.\nBasic landcycling {1}"},
	{name: "Evolving Wilds", typeLine: "Land", oracle: "{T}, Sacrifice Evolving Wilds: Search your library for a basic land card, put it onto the battlefield tapped, then shuffle."},
	{name: "Terramorphic Expanse", typeLine: "Land", oracle: "{T}, Sacrifice Terramorphic Expanse: Search your library for a basic land card, put it onto the battlefield tapped, then shuffle."},
	{name: "Arcane Lighthouse", typeLine: "Land", oracle: "{T}: Add {C}."},
}

func (u utilityLand) record() commander.CardRecord {
	return commander.CardRecord{
		Name:           u.name,
		TypeLine:       u.typeLine,
		OracleText:     u.oracle,
		CommanderLegal: true,
	}
}

// landResult is the outcome of non-basic resolution.
type landResult struct {
	cards     []commander.CardRecord
	fallback  []string // utility lands used to fill the gap
	searchErr error
}

// resolveNonBasics picks up to want non-basic lands for ci, skipping names
// in exclude. A failed search is reported in searchErr and the utility list
// is used instead.
func resolveNonBasics(ctx context.Context, src LandSource, ci commander.ColorIdentity, want int, exclude commander.NameSet, currency string) landResult {
	var res landResult
	if want <= 0 {
		return res
	}

	taken := commander.NewNameSet()
	for k := range exclude {
		taken[k] = struct{}{}
	}

	if src != nil {
		cards, err := src.NonBasicLands(ctx, ci, want+len(exclude)+10)
		if err != nil {
			res.searchErr = &LandResolutionError{Err: err}
		}
		for i := range cards {
			if len(res.cards) == want {
				break
			}
			rec := cards[i].ToRecord(currency)
			if commander.IsBasicLandName(rec.Name) || !taken.Add(rec.Name) {
				continue
			}
			res.cards = append(res.cards, rec)
		}
	}

	for _, u := range utilityLands {
		if len(res.cards) == want {
			break
		}
		if ci.Count() < u.minColors || !taken.Add(u.name) {
			continue
		}
		res.cards = append(res.cards, u.record())
		res.fallback = append(res.fallback, u.name)
	}
	return res
}
