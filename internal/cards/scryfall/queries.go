package scryfall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// commanderQuery matches every card that can lead a deck.
const commanderQuery = `legal:commander is:commander game:paper -is:funny (type:"legendary creature" or (type:planeswalker and o:"can be your commander") or type:background)`

// randomCommanderAttempts bounds how many random draws are made before
// giving up on finding a usable commander.
const randomCommanderAttempts = 6

// ErrNoCommander is returned when no commander satisfies the filters.
var ErrNoCommander = errors.New("no suitable commander found")

// NonBasicLandQuery builds the search for non-basic lands playable under ci.
// A colorless identity gets no identity predicate.
func NonBasicLandQuery(ci commander.ColorIdentity) string {
	q := "legal:commander type:land -type:basic game:paper"
	if f := ci.SearchFilter(); f != "" {
		q += " " + f
	}
	return q
}

// RandomCommanderQuery restricts commanderQuery to an identity. An empty
// identity matches commanders of any colors.
func RandomCommanderQuery(ci commander.ColorIdentity) string {
	if ci.IsColorless() {
		return commanderQuery
	}
	return commanderQuery + " " + ci.SearchFilter()
}

// RandomCommander draws random commanders until one is Commander legal and
// not a companion.
func (c *Client) RandomCommander(ctx context.Context, ci commander.ColorIdentity) (*Card, error) {
	q := RandomCommanderQuery(ci)
	var lastErr error
	for i := 0; i < randomCommanderAttempts; i++ {
		card, err := c.RandomCard(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if !card.IsCommanderLegal() || card.IsCompanion() {
			c.logger.Debug("skipping random commander", "name", card.Name)
			continue
		}
		return card, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCommander, lastErr)
	}
	return nil, ErrNoCommander
}

// commanderNameQuery matches legal commanders whose name contains name.
func commanderNameQuery(name string) string {
	return fmt.Sprintf(`legal:commander name:"%s" (type:legendary or o:"can be your commander")`, name)
}

// ResolveCommander finds a commander by a name given in English or in the
// search language: first by exact English name, then through a printing in
// the search language mapped back to its English printing, and finally by a
// name search ordered by EDHREC popularity.
func (c *Client) ResolveCommander(ctx context.Context, name string) (*Card, error) {
	name = commander.NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNoCommander)
	}

	card, err := c.NamedExact(ctx, name)
	if err == nil && card.IsCommanderLegal() {
		return card, nil
	}
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	name = strings.ReplaceAll(name, `"`, "")
	if c.searchesForeign() {
		card, err := c.resolveForeign(ctx, name)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			c.logger.Debug("foreign name lookup failed", "name", name, "lang", c.searchLang, "error", err)
		}
		if card != nil {
			return card, nil
		}
	}

	res, err := c.SearchCards(ctx, commanderNameQuery(name), SearchOptions{Order: "edhrec"})
	if err != nil {
		return nil, err
	}
	for i := range res.Data {
		if res.Data[i].IsCommanderLegal() {
			return &res.Data[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoCommander, name)
}

func (c *Client) searchesForeign() bool {
	return c.searchLang != "" && c.searchLang != "en"
}

// resolveForeign looks name up among printings in the search language and
// returns the latest English printing of the same card. A nil card means
// no legal match.
func (c *Client) resolveForeign(ctx context.Context, name string) (*Card, error) {
	q := commanderNameQuery(name) + " lang:" + c.searchLang
	res, err := c.SearchCards(ctx, q, SearchOptions{Order: "released", Unique: "prints"})
	if err != nil || len(res.Data) == 0 {
		return nil, err
	}
	best := &res.Data[0]

	if best.OracleID != "" {
		en, err := c.SearchCards(ctx, "oracleid:"+best.OracleID+" lang:en", SearchOptions{Order: "released", Unique: "prints"})
		if err != nil {
			return nil, err
		}
		if len(en.Data) > 0 {
			best = &en.Data[0]
		}
	}
	if !best.IsCommanderLegal() {
		return nil, nil
	}
	return best, nil
}

// SearchCommanders returns commanders whose English or search-language
// names contain term, most popular first. A card printed in both languages
// appears once. A failed search-language query only drops its results.
func (c *Client) SearchCommanders(ctx context.Context, term string, limit int) ([]Card, error) {
	term = strings.TrimSpace(strings.ReplaceAll(term, `"`, ""))
	if term == "" {
		return nil, nil
	}
	q := commanderQuery + fmt.Sprintf(` name:"%s"`, term)

	var english, foreign []Card
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.SearchCards(gctx, q, SearchOptions{Order: "edhrec"})
		if err != nil {
			return err
		}
		english = res.Data
		return nil
	})
	if c.searchesForeign() {
		g.Go(func() error {
			res, err := c.SearchCards(gctx, q+" lang:"+c.searchLang, SearchOptions{Order: "edhrec", Unique: "prints"})
			if err != nil {
				if gctx.Err() == nil {
					c.logger.Warn("commander search failed", "lang", c.searchLang, "error", err)
				}
				return nil
			}
			foreign = res.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := lo.UniqBy(append(english, foreign...), func(card Card) string { return card.oracleKey() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// NonBasicLands returns up to limit non-basic land cards for ci ordered by
// EDHREC rank. Cards outside ci are filtered out, which matters for
// colorless identities whose query carries no identity predicate.
func (c *Client) NonBasicLands(ctx context.Context, ci commander.ColorIdentity, limit int) ([]Card, error) {
	res, err := c.SearchCards(ctx, NonBasicLandQuery(ci), SearchOptions{Order: "edhrec", Unique: "cards"})
	if err != nil {
		return nil, err
	}
	out := make([]Card, 0, len(res.Data))
	for _, card := range res.Data {
		if !ci.Contains(commander.FromSymbols(card.ColorIdentity)) {
			continue
		}
		out = append(out, card)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
