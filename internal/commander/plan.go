package commander

import (
	"fmt"
	"strings"
)

// DeckSize is the exact number of cards in a Commander deck, commanders
// included.
const DeckSize = 100

// Category names used for targets and counts.
const (
	CategoryCreatures = "creatures"
	CategoryRamp      = "ramp"
	CategoryDraw      = "draw"
	CategoryRemoval   = "removal"
	CategoryWipes     = "wipes"
	CategoryFlexible  = "flexible"
)

// CategoryTarget is an inclusive range of cards wanted in one category.
type CategoryTarget struct {
	Name string `toml:"name" json:"name"`
	Min  int    `toml:"min" json:"min"`
	Max  int    `toml:"max" json:"max"`
}

// Midpoint returns the middle of the range, rounded down.
func (t CategoryTarget) Midpoint() int {
	return (t.Min + t.Max) / 2
}

// CategoryConfig lists the fixed category targets. Whatever the fixed
// minimums leave over is the flexible bucket.
type CategoryConfig struct {
	Targets []CategoryTarget `toml:"targets" json:"targets"`
}

// DefaultCategoryConfig returns the stock category ranges.
func DefaultCategoryConfig() CategoryConfig {
	return CategoryConfig{
		Targets: []CategoryTarget{
			{Name: CategoryCreatures, Min: 20, Max: 35},
			{Name: CategoryRamp, Min: 8, Max: 12},
			{Name: CategoryDraw, Min: 8, Max: 12},
			{Name: CategoryRemoval, Min: 6, Max: 10},
			{Name: CategoryWipes, Min: 2, Max: 5},
		},
	}
}

// Validate checks every range is well formed.
func (c CategoryConfig) Validate() error {
	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" || t.Name == CategoryFlexible {
			return fmt.Errorf("invalid category name %q", t.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate category %q", t.Name)
		}
		seen[t.Name] = true
		if t.Min < 0 || t.Max < t.Min {
			return fmt.Errorf("category %s: invalid range [%d,%d]", t.Name, t.Min, t.Max)
		}
	}
	return nil
}

// DeckPlan is the slot layout shared by the prompt and the validator.
type DeckPlan struct {
	Commanders    []string         `json:"commanders"`
	ColorIdentity ColorIdentity    `json:"colorIdentity"`
	Lands         LandPlan         `json:"lands"`
	NonLandSlots  int              `json:"nonLandSlots"`
	Targets       []CategoryTarget `json:"targets"`
	Flexible      int              `json:"flexible"`

	// Scaled is set when the configured minimums did not fit in
	// NonLandSlots and the fixed ranges were shrunk to make room.
	Scaled bool `json:"scaled,omitempty"`

	// MidpointOverflow is set when the sum of target midpoints exceeds
	// NonLandSlots. It is informational only.
	MidpointOverflow bool `json:"midpointOverflow,omitempty"`
}

// PlanDeck derives the non-land slot count and category targets.
// NonLandSlots is always DeckSize minus commanders minus lands.
func PlanDeck(commanders []string, ci ColorIdentity, lands LandPlan, cfg CategoryConfig) (DeckPlan, error) {
	names := make([]string, 0, len(commanders))
	for _, c := range commanders {
		if n := strings.TrimSpace(c); n != "" {
			names = append(names, n)
		}
	}
	if len(names) < 1 || len(names) > 2 {
		return DeckPlan{}, fmt.Errorf("a deck needs one or two commanders, got %d", len(names))
	}

	plan := DeckPlan{
		Commanders:    names,
		ColorIdentity: ci,
		Lands:         lands,
		NonLandSlots:  DeckSize - len(names) - lands.Total,
	}

	targets := make([]CategoryTarget, len(cfg.Targets))
	copy(targets, cfg.Targets)

	sumMin, sumMid := 0, 0
	for _, t := range targets {
		sumMin += t.Min
		sumMid += t.Midpoint()
	}

	if sumMin > plan.NonLandSlots {
		factor := float64(plan.NonLandSlots) / float64(sumMin)
		sumMin = 0
		for i, t := range targets {
			lo := int(float64(t.Min) * factor)
			hi := max(lo, int(float64(t.Max)*factor))
			targets[i] = CategoryTarget{Name: t.Name, Min: lo, Max: hi}
			sumMin += lo
		}
		plan.Scaled = true
	}

	plan.Targets = targets
	plan.Flexible = max(0, plan.NonLandSlots-sumMin)
	plan.MidpointOverflow = sumMid > plan.NonLandSlots
	return plan, nil
}

// Target returns the range for a category, if planned.
func (p DeckPlan) Target(name string) (CategoryTarget, bool) {
	for _, t := range p.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return CategoryTarget{}, false
}
