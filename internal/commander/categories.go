package commander

import (
	"regexp"
	"strings"
)

// MechanicTag is a deck theme the user can ask the generator to favor.
type MechanicTag struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Tier  string `json:"tier"`
}

var mechanicTags = []MechanicTag{
	{Key: "+1+1", Label: "+1/+1 Counters", Tier: "S"},
	{Key: "artifacts", Label: "Artifacts Matter", Tier: "S"},
	{Key: "tokens", Label: "Tokens", Tier: "S"},
	{Key: "graveyard", Label: "Graveyard / Reanimator", Tier: "S"},
	{Key: "spellslinger", Label: "Spellslinger", Tier: "S"},
	{Key: "blink", Label: "Blink / Flicker", Tier: "A"},
	{Key: "tribal", Label: "Tribal", Tier: "A"},
	{Key: "landfall", Label: "Landfall", Tier: "A"},
	{Key: "enchantress", Label: "Enchantress", Tier: "A"},
	{Key: "sacrifice", Label: "Sacrifice / Aristocrats", Tier: "A"},
	{Key: "voltron", Label: "Voltron", Tier: "A"},
	{Key: "lifegain", Label: "Lifegain", Tier: "A"},
	{Key: "cascade", Label: "Cascade", Tier: "B"},
	{Key: "mill", Label: "Mill", Tier: "B"},
	{Key: "group-hug", Label: "Group Hug", Tier: "B"},
	{Key: "stax", Label: "Stax", Tier: "B"},
	{Key: "storm", Label: "Storm", Tier: "B"},
	{Key: "infect", Label: "Infect", Tier: "B"},
	{Key: "superfriends", Label: "Superfriends", Tier: "B"},
	{Key: "politics", Label: "Politics / Goad", Tier: "B"},
}

// MaxMechanics is the number of themes a single request may ask for.
const MaxMechanics = 3

// MechanicTags returns the known theme catalogue.
func MechanicTags() []MechanicTag {
	out := make([]MechanicTag, len(mechanicTags))
	copy(out, mechanicTags)
	return out
}

// MechanicLabel returns the display label for a theme key. Unknown keys are
// returned unchanged so free-text themes still reach the prompt.
func MechanicLabel(key string) string {
	for _, t := range mechanicTags {
		if strings.EqualFold(t.Key, key) {
			return t.Label
		}
	}
	return key
}

var (
	rampPattern    = regexp.MustCompile(`(?i)(add \{|search your library for an? (basic )?land|treasure token)`)
	drawPattern    = regexp.MustCompile(`(?i)(draw a card|draw two cards|draw three cards|whenever you draw a card)`)
	removalPattern = regexp.MustCompile(`(?i)(destroy target|exile target|counter target|fight target)`)
	wipePattern    = regexp.MustCompile(`(?i)(destroy all creatures|exile all creatures|destroy all nonland permanents|all creatures get -)`)
)

// Categorize returns the functional categories a card falls into, judged
// from its type line and oracle text.
func Categorize(c CardRecord) []string {
	var out []string
	if strings.Contains(strings.ToLower(c.TypeLine), "creature") {
		out = append(out, CategoryCreatures)
	}
	if rampPattern.MatchString(c.OracleText) && !c.IsLand() {
		out = append(out, CategoryRamp)
	}
	if drawPattern.MatchString(c.OracleText) {
		out = append(out, CategoryDraw)
	}
	if removalPattern.MatchString(c.OracleText) {
		out = append(out, CategoryRemoval)
	}
	if wipePattern.MatchString(c.OracleText) {
		out = append(out, CategoryWipes)
	}
	return out
}

// CountCategories tallies Categorize over a set of cards.
func CountCategories(cards []CardRecord) map[string]int {
	counts := map[string]int{
		CategoryCreatures: 0,
		CategoryRamp:      0,
		CategoryDraw:      0,
		CategoryRemoval:   0,
		CategoryWipes:     0,
	}
	for _, c := range cards {
		for _, cat := range Categorize(c) {
			counts[cat]++
		}
	}
	return counts
}

// primaryTypes is checked in order; the first match wins.
var primaryTypes = []string{
	"Creature", "Artifact", "Enchantment", "Instant", "Sorcery", "Planeswalker", "Battle", "Land",
}

// PrimaryType returns the type a card is grouped under for display.
func PrimaryType(typeLine string) string {
	lower := strings.ToLower(typeLine)
	for _, t := range primaryTypes {
		if strings.Contains(lower, strings.ToLower(t)) {
			return t
		}
	}
	return "Other"
}
