package scryfall

import (
	"strconv"
	"strings"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// Supported price currencies.
const (
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
)

// Price returns the card's price in currency, falling back to the foil
// (and for USD, etched) price. Missing prices are zero.
func (c *Card) Price(currency string) float64 {
	var candidates []*string
	switch strings.ToUpper(currency) {
	case CurrencyUSD:
		candidates = []*string{c.Prices.USD, c.Prices.USDFoil, c.Prices.USDEtched}
	default:
		candidates = []*string{c.Prices.EUR, c.Prices.EURFoil}
	}
	for _, p := range candidates {
		if p == nil {
			continue
		}
		if v, err := strconv.ParseFloat(*p, 64); err == nil {
			return v
		}
	}
	return 0
}

// ToRecord flattens the card into the record the deck builder uses.
// Multi-faced cards take their type line, mana cost and images from the
// faces when the top-level fields are empty.
func (c *Card) ToRecord(currency string) commander.CardRecord {
	rec := commander.CardRecord{
		Name:           strings.TrimSpace(c.Name),
		TypeLine:       c.TypeLine,
		ManaCost:       c.ManaCost,
		CMC:            c.CMC,
		OracleText:     c.FullOracleText(),
		Price:          commander.RoundCents(c.Price(currency)),
		ScryfallURI:    c.ScryfallURI,
		EDHRECRank:     c.EDHRECRank,
		ColorIdentity:  commander.FromSymbols(c.ColorIdentity),
		CommanderLegal: c.IsCommanderLegal(),
	}
	if rec.ScryfallURI == "" {
		rec.ScryfallURI = c.RelatedURIs["gatherer"]
	}

	if rec.TypeLine == "" && len(c.CardFaces) > 0 {
		rec.TypeLine = c.CardFaces[0].TypeLine
	}
	if rec.ManaCost == "" {
		costs := make([]string, 0, len(c.CardFaces))
		for _, f := range c.CardFaces {
			if f.ManaCost != "" {
				costs = append(costs, f.ManaCost)
			}
		}
		rec.ManaCost = strings.Join(costs, " / ")
	}

	if c.ImageURIs != nil {
		rec.Image = firstNonEmpty(c.ImageURIs.Normal, c.ImageURIs.Large, c.ImageURIs.Small)
		rec.SmallImage = c.ImageURIs.Small
	}
	for _, f := range c.CardFaces {
		if f.ImageURIs == nil {
			continue
		}
		if rec.Image == "" {
			rec.Image = firstNonEmpty(f.ImageURIs.Normal, f.ImageURIs.Large, f.ImageURIs.Small)
		}
		if rec.SmallImage == "" {
			rec.SmallImage = f.ImageURIs.Small
		}
	}
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
