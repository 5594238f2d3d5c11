package commander

import (
	"fmt"
	"math"
)

// Basic land names keyed by color symbol. "C" is the colorless basic.
var basicLandNames = map[string]string{
	"W": "Plains",
	"U": "Island",
	"B": "Swamp",
	"R": "Mountain",
	"G": "Forest",
	"C": "Wastes",
}

// BasicLandName returns the basic land producing the given color symbol.
func BasicLandName(symbol string) string {
	return basicLandNames[symbol]
}

// IsBasicLandName reports whether name is one of the six basic lands.
func IsBasicLandName(name string) bool {
	key := NameKey(name)
	for _, n := range basicLandNames {
		if NameKey(n) == key {
			return true
		}
	}
	return false
}

// LandTier sets the non-basic share of the mana base for decks with up to
// MaxColors colors. Floor and Ceiling are fractions of the total land count.
type LandTier struct {
	MaxColors int     `toml:"max_colors" json:"maxColors"`
	Ratio     float64 `toml:"ratio" json:"ratio"`
	Floor     float64 `toml:"floor" json:"floor"`
	Ceiling   float64 `toml:"ceiling" json:"ceiling"`
}

// LandConfig bounds the land plan.
type LandConfig struct {
	Default   int        `toml:"default" json:"default"`
	Min       int        `toml:"min" json:"min"`
	Max       int        `toml:"max" json:"max"`
	MinBasics int        `toml:"min_basics" json:"minBasics"`
	Tiers     []LandTier `toml:"tiers" json:"tiers"`
}

// DefaultLandConfig returns the stock land band and color tiers.
func DefaultLandConfig() LandConfig {
	return LandConfig{
		Default:   37,
		Min:       34,
		Max:       42,
		MinBasics: 8,
		Tiers: []LandTier{
			{MaxColors: 1, Ratio: 0.25, Floor: 0.10, Ceiling: 0.35},
			{MaxColors: 2, Ratio: 0.40, Floor: 0.25, Ceiling: 0.50},
			{MaxColors: 3, Ratio: 0.50, Floor: 0.35, Ceiling: 0.60},
			{MaxColors: 5, Ratio: 0.65, Floor: 0.60, Ceiling: 0.75},
		},
	}
}

// Validate checks the band and that tiers are ordered with non-decreasing
// ratios.
func (c LandConfig) Validate() error {
	if c.Min <= 0 || c.Max < c.Min {
		return fmt.Errorf("invalid land band [%d,%d]", c.Min, c.Max)
	}
	// two commanders plus at least one spell must still fit
	if maxLands := DeckSize - 2 - 1; c.Max > maxLands {
		return fmt.Errorf("land band maximum %d exceeds %d", c.Max, maxLands)
	}
	if c.Default < c.Min || c.Default > c.Max {
		return fmt.Errorf("default land count %d outside band [%d,%d]", c.Default, c.Min, c.Max)
	}
	if c.MinBasics < 0 || c.MinBasics > c.Min {
		return fmt.Errorf("min_basics %d must be within [0,%d]", c.MinBasics, c.Min)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one land tier is required")
	}
	prev := LandTier{}
	for i, t := range c.Tiers {
		if t.Floor > t.Ceiling || t.Floor < 0 || t.Ceiling > 1 {
			return fmt.Errorf("tier %d: floor %.2f / ceiling %.2f out of range", i, t.Floor, t.Ceiling)
		}
		if i > 0 && (t.MaxColors <= prev.MaxColors || t.Ratio < prev.Ratio) {
			return fmt.Errorf("tier %d: tiers must increase in colors with non-decreasing ratio", i)
		}
		prev = t
	}
	if c.Tiers[len(c.Tiers)-1].MaxColors < 5 {
		return fmt.Errorf("last land tier must cover five colors")
	}
	return nil
}

func (c LandConfig) tierFor(colors int) LandTier {
	if colors < 1 {
		colors = 1
	}
	for _, t := range c.Tiers {
		if colors <= t.MaxColors {
			return t
		}
	}
	return c.Tiers[len(c.Tiers)-1]
}

// BasicAllocation is the number of copies of one basic land.
type BasicAllocation struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// LandPlan splits the mana base into non-basic and basic slots.
type LandPlan struct {
	Total    int               `json:"total"`
	NonBasic int               `json:"nonBasic"`
	Basic    int               `json:"basic"`
	Basics   []BasicAllocation `json:"basics"`
	Identity ColorIdentity     `json:"colorIdentity"`
}

// PlanLands computes the land plan. A nil, NaN or infinite desired count
// falls back to the configured default; the result is clamped to the band.
func PlanLands(desired *float64, ci ColorIdentity, cfg LandConfig) LandPlan {
	total := cfg.Default
	if desired != nil && !math.IsNaN(*desired) && !math.IsInf(*desired, 0) {
		// clamp before converting; huge values overflow int
		total = int(math.Round(math.Min(math.Max(*desired, float64(cfg.Min)), float64(cfg.Max))))
	}
	total = clamp(total, cfg.Min, cfg.Max)

	colors := ci.Count()
	tier := cfg.tierFor(colors)
	ft := float64(total)

	nonBasic := int(math.Round(tier.Ratio * ft))
	nonBasic = clamp(nonBasic, int(math.Floor(tier.Floor*ft)), int(math.Floor(tier.Ceiling*ft)))

	minBasics := max(cfg.MinBasics, colors)
	if nonBasic > total-minBasics {
		nonBasic = total - minBasics
	}
	if nonBasic < 0 {
		nonBasic = 0
	}

	return LandPlan{
		Total:    total,
		NonBasic: nonBasic,
		Basic:    total - nonBasic,
		Basics:   ApportionBasics(total-nonBasic, ci),
		Identity: ci,
	}
}

// WithNonBasic returns a copy of the plan with n non-basic slots, handing
// the difference to the basics. n is clamped to [0, Total].
func (p LandPlan) WithNonBasic(n int) LandPlan {
	n = clamp(n, 0, p.Total)
	p.NonBasic = n
	p.Basic = p.Total - n
	p.Basics = ApportionBasics(p.Basic, p.Identity)
	return p
}

// ApportionBasics spreads count basics evenly over the identity's colors.
// The remainder goes one per color in WUBRG order. A colorless identity
// puts every basic on Wastes.
func ApportionBasics(count int, ci ColorIdentity) []BasicAllocation {
	if count < 0 {
		count = 0
	}
	if ci.IsColorless() {
		return []BasicAllocation{{Symbol: "C", Name: basicLandNames["C"], Count: count}}
	}

	symbols := ci.Symbols()
	share, rem := count/len(symbols), count%len(symbols)
	out := make([]BasicAllocation, 0, len(symbols))
	for i, s := range symbols {
		n := share
		if i < rem {
			n++
		}
		out = append(out, BasicAllocation{Symbol: s, Name: basicLandNames[s], Count: n})
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
