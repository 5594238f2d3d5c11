package deckexport

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

func createTestDeck() *commander.Deck {
	return &commander.Deck{
		ID:            "deck-1",
		ColorIdentity: "UR",
		Commanders: []commander.CardRecord{
			{Name: "Niv-Mizzet, Parun", TypeLine: "Legendary Creature — Dragon Wizard"},
		},
		Spells:     map[string]int{"Opt": 1, "Brainstorm": 1},
		Lands:      map[string]int{"Island": 17, "Mountain": 16, "Steam Vents": 1},
		TotalSpend: 42.5,
		Currency:   "EUR",
	}
}

func TestExport_Text(t *testing.T) {
	export, err := Export(createTestDeck(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := strings.Join([]string{
		"1 Niv-Mizzet, Parun",
		"1 Brainstorm",
		"1 Opt",
		"17 Island",
		"16 Mountain",
		"1 Steam Vents",
	}, "\n") + "\n"
	if export.Content != want {
		t.Errorf("unexpected content:\n%s\nwant:\n%s", export.Content, want)
	}
	if export.Filename != "Niv-Mizzet_ Parun.txt" {
		t.Errorf("unexpected filename %q", export.Filename)
	}
	if export.Format != FormatText {
		t.Errorf("unexpected format %s", export.Format)
	}
}

func TestExport_TextWithStats(t *testing.T) {
	deck := createTestDeck()
	deck.AddWarning(commander.WarningCardCount, "", "deck has 37 cards instead of 100")

	export, err := Export(deck, &ExportOptions{Format: FormatText, IncludeStats: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, line := range []string{"// Commander: Niv-Mizzet, Parun", "// Color identity: UR", "total 42.50 EUR", "// Warnings: 1"} {
		if !strings.Contains(export.Content, line) {
			t.Errorf("expected %q in:\n%s", line, export.Content)
		}
	}
}

func TestExport_JSON(t *testing.T) {
	export, err := Export(createTestDeck(), &ExportOptions{Format: FormatJSON})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded commander.Deck
	if err := json.Unmarshal([]byte(export.Content), &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.ID != "deck-1" || decoded.Lands["Island"] != 17 {
		t.Errorf("unexpected decoded deck %+v", decoded)
	}
	if !strings.HasSuffix(export.Filename, ".json") || export.ContentType != "application/json" {
		t.Errorf("unexpected metadata %+v", export)
	}
}

func TestExport_Moxfield(t *testing.T) {
	export, err := Export(createTestDeck(), &ExportOptions{Format: FormatMoxfield})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(export.Content, "Commander\n1 Niv-Mizzet, Parun\n\nDeck\n") {
		t.Errorf("unexpected sections:\n%s", export.Content)
	}
	if strings.Count(export.Content, "Niv-Mizzet") != 1 {
		t.Error("commander must appear only in its section")
	}
}

func TestExport_Errors(t *testing.T) {
	if _, err := Export(nil, nil); err == nil {
		t.Error("expected error for nil deck")
	}
	if _, err := Export(createTestDeck(), &ExportOptions{Format: "mtgo"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Atraxa, Praetors' Voice": "Atraxa_ Praetors' Voice",
		"Fire // Ice":             "Fire __ Ice",
		"   ":                     "commander-deck",
		strings.Repeat("a", 150):  strings.Repeat("a", 100),
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
