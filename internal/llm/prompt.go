package llm

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// maxOwnedInPrompt caps how many owned cards are listed in the prompt.
const maxOwnedInPrompt = 100

// spellSchemaName names the structured-output schema.
const spellSchemaName = "commander_spells"

const systemInstruction = `You are a world-class deck builder for the Commander format of Magic: The Gathering.
You build the strongest deck you can within the user's constraints.
Answer with a single JSON object and nothing else: no prose, no markdown.`

// RequestContext carries the user preferences that shape the prompt but not
// the slot plan.
type RequestContext struct {
	Budget     float64
	Currency   string
	Mechanics  []string
	OwnedCards []string
}

// SpellListSchema is the JSON schema for a reply holding exactly n names.
func SpellListSchema(n int) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"spells": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": n,
				"maxItems": n,
			},
		},
		"required":             []string{"spells"},
		"additionalProperties": false,
	}
}

// BuildPrompt renders the instruction for the non-land part of a deck. The
// requested count is always plan.NonLandSlots.
func BuildPrompt(plan commander.DeckPlan, rc RequestContext) Prompt {
	var b strings.Builder
	n := plan.NonLandSlots

	fmt.Fprintf(&b, "Build the non-land part of a 100-card Commander deck.\n\n")
	b.WriteString("Strict constraints:\n")
	fmt.Fprintf(&b, "- Commander(s): %s\n", strings.Join(plan.Commanders, " + "))
	fmt.Fprintf(&b, "- Color identity: %s. Every card must fit inside it.\n", plan.ColorIdentity)
	fmt.Fprintf(&b, "- Return exactly %d distinct card names in \"spells\".\n", n)
	b.WriteString("- Singleton: no card may appear twice.\n")
	b.WriteString("- Every card must be legal in Commander.\n")
	b.WriteString("- Do not include any land cards and do not include the commander(s); the mana base is built separately.\n")
	b.WriteString("- Use exact English card names, front face only for double-faced cards.\n\n")

	b.WriteString("Preferences:\n")
	currency := rc.Currency
	if currency == "" {
		currency = "EUR"
	}
	if rc.Budget > 0 {
		fmt.Fprintf(&b, "- Approximate total budget: %.0f %s. Prefer efficient cheaper alternatives to expensive staples.\n", rc.Budget, currency)
	}
	if len(rc.Mechanics) > 0 {
		labels := make([]string, 0, len(rc.Mechanics))
		for _, m := range rc.Mechanics {
			labels = append(labels, commander.MechanicLabel(m))
		}
		fmt.Fprintf(&b, "- Themes to favor: %s.\n", strings.Join(labels, ", "))
	} else {
		b.WriteString("- Themes to favor: none in particular, follow the commander's strengths.\n")
	}
	b.WriteString("- Category targets (card counts):\n")
	for _, t := range plan.Targets {
		fmt.Fprintf(&b, "  - %s: %d to %d\n", t.Name, t.Min, t.Max)
	}
	if plan.Flexible > 0 {
		fmt.Fprintf(&b, "  - %d flexible slots for synergy and win conditions\n", plan.Flexible)
	}

	if owned := ownedForPrompt(rc.OwnedCards); len(owned) > 0 {
		b.WriteString("\nOwned cards (include them when they fit the strategy):\n")
		b.WriteString(strings.Join(owned, ", "))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nOutput: {\"spells\": [%d card names]}", n)

	return Prompt{
		System:      systemInstruction,
		User:        b.String(),
		SchemaName:  spellSchemaName,
		Schema:      SpellListSchema(n),
		Temperature: 0.7,
	}
}

func ownedForPrompt(cards []string) []string {
	seen := commander.NewNameSet()
	out := make([]string, 0, min(len(cards), maxOwnedInPrompt))
	for _, c := range cards {
		if len(out) == maxOwnedInPrompt {
			break
		}
		name := commander.NormalizeName(c)
		if commander.IsBasicLandName(name) || !seen.Add(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}
