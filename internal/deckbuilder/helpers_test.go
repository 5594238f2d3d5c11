package deckbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ramonehamilton/commander-craft/internal/cards/scryfall"
	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// started by an init in the genai dependency tree
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		// keep-alive connections of provider HTTP clients
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

func price(v string) *string { return &v }

func card(name, typeLine string, ci []string, eur string) *scryfall.Card {
	c := &scryfall.Card{
		Name:          name,
		TypeLine:      typeLine,
		ColorIdentity: ci,
		CMC:           2,
		Legalities:    scryfall.Legalities{Commander: "legal"},
	}
	if eur != "" {
		c.Prices.EUR = price(eur)
	}
	return c
}

// fakeCards serves NamedExact from a fixed map and tracks concurrency.
type fakeCards struct {
	cards map[string]*scryfall.Card
	delay time.Duration

	calls       atomic.Int32
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeCards(cards ...*scryfall.Card) *fakeCards {
	f := &fakeCards{cards: make(map[string]*scryfall.Card)}
	for _, c := range cards {
		f.add(c)
	}
	return f
}

func (f *fakeCards) add(c *scryfall.Card) {
	f.cards[commander.NameKey(c.Name)] = c
}

func (f *fakeCards) NamedExact(ctx context.Context, name string) (*scryfall.Card, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		cur := f.maxInflight.Load()
		if n <= cur || f.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if c, ok := f.cards[commander.NameKey(name)]; ok {
		return c, nil
	}
	return nil, &scryfall.NotFoundError{URL: "/cards/named?exact=" + name}
}

func (f *fakeCards) ResolveCommander(ctx context.Context, name string) (*scryfall.Card, error) {
	if c, ok := f.cards[commander.NameKey(name)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", scryfall.ErrNoCommander, name)
}

// fakeLands returns count generic lands, or err.
type fakeLands struct {
	count int
	err   error

	mu  sync.Mutex
	cis []commander.ColorIdentity
}

func (f *fakeLands) NonBasicLands(ctx context.Context, ci commander.ColorIdentity, limit int) ([]scryfall.Card, error) {
	f.mu.Lock()
	f.cis = append(f.cis, ci)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]scryfall.Card, 0, f.count)
	for i := 0; i < f.count && i < limit; i++ {
		out = append(out, *card(fmt.Sprintf("Test Land %02d", i+1), "Land", nil, "0.50"))
	}
	return out, nil
}

func spellNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Test Spell %02d", i+1)
	}
	return out
}

func spellCards(names []string) []*scryfall.Card {
	out := make([]*scryfall.Card, len(names))
	for i, n := range names {
		c := card(n, "Instant", []string{"U"}, "1.00")
		c.OracleText = "Draw a card."
		out[i] = c
	}
	return out
}

// listProvider answers with a fixed spell list, optionally blocking until
// the context ends.
type listProvider struct {
	names []string
	block bool
	calls atomic.Int32
}

func (p *listProvider) Name() string { return "fake" }

func (p *listProvider) GenerateJSON(ctx context.Context, pr llm.Prompt) (string, error) {
	p.calls.Add(1)
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	b, _ := json.Marshal(map[string][]string{"spells": p.names})
	return string(b), nil
}

type fakeStore struct {
	mu    sync.Mutex
	decks []*commander.Deck
}

func (s *fakeStore) SaveDeck(ctx context.Context, d *commander.Deck, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks = append(s.decks, d)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decks)
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }
