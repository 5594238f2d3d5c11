package commander

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// CardRecord is the lightweight card bundle the deck is built from.
type CardRecord struct {
	Name           string        `json:"name"`
	TypeLine       string        `json:"typeLine"`
	ManaCost       string        `json:"manaCost,omitempty"`
	CMC            float64       `json:"cmc"`
	OracleText     string        `json:"oracleText,omitempty"`
	Price          float64       `json:"price"`
	Image          string        `json:"image,omitempty"`
	SmallImage     string        `json:"smallImage,omitempty"`
	ScryfallURI    string        `json:"scryfallUri,omitempty"`
	EDHRECRank     int           `json:"edhrecRank,omitempty"`
	ColorIdentity  ColorIdentity `json:"colorIdentity"`
	CommanderLegal bool          `json:"commanderLegal"`
}

// IsLand reports whether the card's type line includes Land.
func (c CardRecord) IsLand() bool {
	return strings.Contains(strings.ToLower(c.TypeLine), "land")
}

// BasicLandRecord builds the static record for a basic land.
func BasicLandRecord(symbol string) CardRecord {
	name := BasicLandName(symbol)
	ci := Canonicalize(symbol)
	typeLine := "Basic Land — " + name
	if symbol == "C" {
		typeLine = "Basic Land"
	}
	return CardRecord{
		Name:           name,
		TypeLine:       typeLine,
		ColorIdentity:  ci,
		CommanderLegal: true,
	}
}

// Warning kinds attached to a deck.
const (
	WarningMissingCard   = "missing_card"
	WarningDuplicateCard = "duplicate_card"
	WarningLandFallback  = "land_fallback"
	WarningLandShortfall = "land_shortfall"
	WarningCardCount     = "card_count"
	WarningOverBudget    = "over_budget"
)

// Warning is a non-fatal discrepancy found while assembling a deck.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Card    string `json:"card,omitempty"`
}

// Deck is the generated 100-card list.
type Deck struct {
	ID             string         `json:"id"`
	ColorIdentity  ColorIdentity  `json:"colorIdentity"`
	Commanders     []CardRecord   `json:"commanders"`
	Spells         map[string]int `json:"spells"`
	SpellCards     []CardRecord   `json:"spellCards"`
	Lands          map[string]int `json:"lands"`
	LandCards      []CardRecord   `json:"landCards"`
	Budget         float64        `json:"budget"`
	TotalSpend     float64        `json:"totalSpend"`
	Currency       string         `json:"currency"`
	CategoryCounts map[string]int `json:"categoryCounts"`
	TypeCounts     map[string]int `json:"typeCounts"`
	Warnings       []Warning      `json:"warnings"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// TotalCards sums commanders, spell quantities and land quantities.
func (d *Deck) TotalCards() int {
	total := len(d.Commanders)
	for _, q := range d.Spells {
		total += q
	}
	for _, q := range d.Lands {
		total += q
	}
	return total
}

// CommanderNames returns the commanders' names in order.
func (d *Deck) CommanderNames() []string {
	out := make([]string, len(d.Commanders))
	for i, c := range d.Commanders {
		out[i] = c.Name
	}
	return out
}

// SortedSpellNames returns spell names alphabetically.
func (d *Deck) SortedSpellNames() []string {
	return sortedKeys(d.Spells)
}

// SortedLandNames returns land names alphabetically.
func (d *Deck) SortedLandNames() []string {
	return sortedKeys(d.Lands)
}

// AddWarning appends a warning.
func (d *Deck) AddWarning(kind, card, format string, args ...any) {
	d.Warnings = append(d.Warnings, Warning{Kind: kind, Card: card, Message: fmt.Sprintf(format, args...)})
}

// WarningsOf returns warnings of one kind.
func (d *Deck) WarningsOf(kind string) []Warning {
	var out []Warning
	for _, w := range d.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// Stats are derived display figures for a deck.
type Stats struct {
	OwnedCount   int     `json:"ownedCount"`
	OwnedPercent float64 `json:"ownedPercent"`
	AverageCMC   float64 `json:"averageCmc"`
}

// ComputeStats derives ownership and curve figures. owned is compared by
// NameKey; basics count as owned only when listed.
func (d *Deck) ComputeStats(owned NameSet) Stats {
	var st Stats
	countOwned := func(name string, qty int) {
		if owned.Has(name) {
			st.OwnedCount += qty
		}
	}
	for _, c := range d.Commanders {
		countOwned(c.Name, 1)
	}
	for n, q := range d.Spells {
		countOwned(n, q)
	}
	for n, q := range d.Lands {
		countOwned(n, q)
	}
	if total := d.TotalCards(); total > 0 {
		st.OwnedPercent = RoundCents(float64(st.OwnedCount) * 100 / float64(total))
	}

	var cmcSum float64
	nonLand := 0
	for _, c := range append(append([]CardRecord{}, d.Commanders...), d.SpellCards...) {
		if c.IsLand() {
			continue
		}
		cmcSum += c.CMC
		nonLand++
	}
	if nonLand > 0 {
		st.AverageCMC = RoundCents(cmcSum / float64(nonLand))
	}
	return st
}

// RoundCents rounds v to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
