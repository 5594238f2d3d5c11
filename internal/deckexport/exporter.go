// Package deckexport renders generated decks as text lists, JSON and
// section-headed import lists.
package deckexport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// ExportFormat represents the format to export the deck in.
type ExportFormat string

const (
	FormatText     ExportFormat = "text"     // "1 Card Name" per line, commanders first
	FormatJSON     ExportFormat = "json"     // the full deck document
	FormatMoxfield ExportFormat = "moxfield" // "Commander" and "Deck" sections
)

// Formats lists the supported formats.
func Formats() []ExportFormat {
	return []ExportFormat{FormatText, FormatJSON, FormatMoxfield}
}

// ExportOptions controls deck export behavior.
type ExportOptions struct {
	Format       ExportFormat
	IncludeStats bool // Add a summary comment block (text only)
}

// DeckExport represents an exported deck.
type DeckExport struct {
	Content     string       `json:"content"`
	Format      ExportFormat `json:"format"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"contentType"`
}

// Export renders deck in the requested format. A nil options value exports
// plain text.
func Export(deck *commander.Deck, options *ExportOptions) (*DeckExport, error) {
	if deck == nil {
		return nil, fmt.Errorf("deck is nil")
	}
	if options == nil {
		options = &ExportOptions{Format: FormatText}
	}

	base := sanitizeFilename(strings.Join(deck.CommanderNames(), " + "))

	switch options.Format {
	case FormatText, "":
		return &DeckExport{
			Content:     exportText(deck, options),
			Format:      FormatText,
			Filename:    base + ".txt",
			ContentType: "text/plain; charset=utf-8",
		}, nil
	case FormatJSON:
		b, err := json.MarshalIndent(deck, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal deck: %w", err)
		}
		return &DeckExport{
			Content:     string(b),
			Format:      FormatJSON,
			Filename:    base + ".json",
			ContentType: "application/json",
		}, nil
	case FormatMoxfield:
		return &DeckExport{
			Content:     exportSections(deck),
			Format:      FormatMoxfield,
			Filename:    base + ".txt",
			ContentType: "text/plain; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", options.Format)
	}
}

// exportText writes commanders, spells, then lands.
// Format: "1 Sol Ring"
func exportText(deck *commander.Deck, options *ExportOptions) string {
	var sb strings.Builder

	if options.IncludeStats {
		fmt.Fprintf(&sb, "// Commander: %s\n", strings.Join(deck.CommanderNames(), " + "))
		fmt.Fprintf(&sb, "// Color identity: %s\n", deck.ColorIdentity)
		fmt.Fprintf(&sb, "// Cards: %d, total %.2f %s\n", deck.TotalCards(), deck.TotalSpend, deck.Currency)
		if len(deck.Warnings) > 0 {
			fmt.Fprintf(&sb, "// Warnings: %d\n", len(deck.Warnings))
		}
		sb.WriteString("\n")
	}

	for _, name := range deck.CommanderNames() {
		fmt.Fprintf(&sb, "1 %s\n", name)
	}
	writeCounts(&sb, deck.Spells, deck.SortedSpellNames())
	writeCounts(&sb, deck.Lands, deck.SortedLandNames())
	return sb.String()
}

// exportSections writes a "Commander" section followed by a "Deck" section.
func exportSections(deck *commander.Deck) string {
	var sb strings.Builder

	sb.WriteString("Commander\n")
	for _, name := range deck.CommanderNames() {
		fmt.Fprintf(&sb, "1 %s\n", name)
	}

	sb.WriteString("\nDeck\n")
	writeCounts(&sb, deck.Spells, deck.SortedSpellNames())
	writeCounts(&sb, deck.Lands, deck.SortedLandNames())
	return sb.String()
}

func writeCounts(sb *strings.Builder, counts map[string]int, names []string) {
	for _, name := range names {
		if q := counts[name]; q > 0 {
			fmt.Fprintf(sb, "%d %s\n", q, name)
		}
	}
}

// sanitizeFilename removes invalid characters from filename.
func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", ","}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if len(result) > 100 {
		result = result[:100]
	}
	if result == "" {
		result = "commander-deck"
	}
	return result
}
