package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

func testPlan(t *testing.T) commander.DeckPlan {
	t.Helper()
	ci := commander.Canonicalize("wubg")
	lands := commander.PlanLands(nil, ci, commander.DefaultLandConfig())
	plan, err := commander.PlanDeck([]string{"Atraxa, Praetors' Voice"}, ci, lands, commander.DefaultCategoryConfig())
	require.NoError(t, err)
	return plan
}

func TestBuildPrompt(t *testing.T) {
	plan := testPlan(t)
	p := BuildPrompt(plan, RequestContext{
		Budget:     150,
		Currency:   "EUR",
		Mechanics:  []string{"+1+1", "proliferate"},
		OwnedCards: []string{"Sol Ring", "Forest", "sol ring", "Cultivate // Extra"},
	})

	assert.Contains(t, p.System, "JSON")
	assert.Contains(t, p.User, "Atraxa, Praetors' Voice")
	assert.Contains(t, p.User, "Color identity: WUBG")
	assert.Contains(t, p.User, fmt.Sprintf("exactly %d distinct card names", plan.NonLandSlots))
	assert.Contains(t, p.User, "150 EUR")
	assert.Contains(t, p.User, "+1/+1 Counters, proliferate")
	assert.Contains(t, p.User, "Sol Ring, Cultivate")
	assert.NotContains(t, p.User, "Forest")
	for _, tgt := range plan.Targets {
		assert.Contains(t, p.User, fmt.Sprintf("%s: %d to %d", tgt.Name, tgt.Min, tgt.Max))
	}

	spells := p.Schema["properties"].(map[string]any)["spells"].(map[string]any)
	assert.Equal(t, plan.NonLandSlots, spells["minItems"])
	assert.Equal(t, plan.NonLandSlots, spells["maxItems"])
}

func TestBuildPrompt_NoPreferences(t *testing.T) {
	p := BuildPrompt(testPlan(t), RequestContext{})

	assert.NotContains(t, p.User, "budget")
	assert.Contains(t, p.User, "none in particular")
	assert.NotContains(t, p.User, "Owned cards")
}

func TestBuildPrompt_OwnedCardsCapped(t *testing.T) {
	owned := make([]string, 0, 150)
	for i := range 150 {
		owned = append(owned, fmt.Sprintf("Card %03d", i))
	}
	p := BuildPrompt(testPlan(t), RequestContext{OwnedCards: owned})

	assert.Contains(t, p.User, "Card 099")
	assert.NotContains(t, p.User, "Card 100")
}

func TestParseSpellList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{name: "plain", input: `{"spells":["Sol Ring","Arcane Signet"]}`, want: []string{"Sol Ring", "Arcane Signet"}},
		{name: "fenced", input: "```json\n{\"spells\":[\"Sol Ring\"]}\n```", want: []string{"Sol Ring"}},
		{name: "bare fence", input: "```\n{\"spells\":[]}\n```", want: []string{}},
		{name: "empty", input: "  ", wantErr: ErrEmptyResponse},
		{name: "prose", input: "Here is your deck!"},
		{name: "missing key", input: `{"cards":["Sol Ring"]}`},
		{name: "not strings", input: `{"spells":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpellList(tt.input)
			switch {
			case tt.want != nil:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				var malformed *MalformedResponseError
				require.True(t, errors.As(err, &malformed), "got %v", err)
				assert.Equal(t, tt.input, malformed.Raw)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1}  `))
	assert.False(t, strings.Contains(stripCodeFence("```\nx\n```"), "`"))
}
