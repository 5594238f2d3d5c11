//go:build integration
// +build integration

package scryfall

import (
	"context"
	"testing"
	"time"
)

// These tests make real API calls to Scryfall.
// Run with: go test -tags=integration

func TestIntegration_NamedExact(t *testing.T) {
	client := NewClient(DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	card, err := client.NamedExact(ctx, "Sol Ring")
	if err != nil {
		t.Fatalf("NamedExact failed: %v", err)
	}

	if card.Name != "Sol Ring" {
		t.Errorf("Expected Sol Ring, got %s", card.Name)
	}
	if !card.IsCommanderLegal() {
		t.Error("Sol Ring should be commander legal")
	}

	t.Logf("Sol Ring EUR price: %.2f", card.Price(CurrencyEUR))
}

func TestIntegration_RandomCommander(t *testing.T) {
	client := NewClient(DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	card, err := client.RandomCommander(ctx, "G")
	if err != nil {
		t.Fatalf("RandomCommander failed: %v", err)
	}

	t.Logf("Random mono-green commander: %s", card.Name)
}

func TestIntegration_NonBasicLands(t *testing.T) {
	client := NewClient(DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lands, err := client.NonBasicLands(ctx, "WU", 20)
	if err != nil {
		t.Fatalf("NonBasicLands failed: %v", err)
	}
	if len(lands) == 0 {
		t.Fatal("Expected lands for Azorius")
	}
	for _, l := range lands {
		t.Logf("%s (%s)", l.Name, l.TypeLine)
	}
}
