// Package commander holds the Commander-format rules the deck generator plans
// and validates against: color identity, the land plan, slot targets, card
// name sanitizing and the generated deck model.
package commander

import (
	"fmt"
	"strings"
)

// colorOrder is the canonical WUBRG ordering used everywhere a color
// identity is serialized or iterated.
const colorOrder = "WUBRG"

// ColorIdentity is a canonical set of color symbols in WUBRG order.
// The empty identity is colorless.
type ColorIdentity string

// Canonicalize builds a ColorIdentity from loose input. Case and order are
// ignored, duplicates collapse, and anything outside WUBRG is dropped.
// Canonicalize(string(Canonicalize(x))) == Canonicalize(x).
func Canonicalize(s string) ColorIdentity {
	upper := strings.ToUpper(s)
	var b strings.Builder
	for _, c := range colorOrder {
		if strings.ContainsRune(upper, c) {
			b.WriteRune(c)
		}
	}
	return ColorIdentity(b.String())
}

// ParseColorIdentity is the strict form of Canonicalize used for request
// validation: any symbol outside WUBRG is rejected.
func ParseColorIdentity(s string) (ColorIdentity, error) {
	for _, c := range strings.TrimSpace(s) {
		if !strings.ContainsRune(colorOrder, c) && !strings.ContainsRune(strings.ToLower(colorOrder), c) {
			return "", fmt.Errorf("invalid color symbol %q in identity %q", c, s)
		}
	}
	return Canonicalize(s), nil
}

// FromSymbols canonicalizes a Scryfall color_identity array.
func FromSymbols(symbols []string) ColorIdentity {
	return Canonicalize(strings.Join(symbols, ""))
}

// Count returns the number of colors in the identity.
func (ci ColorIdentity) Count() int {
	return len(ci)
}

// IsColorless reports whether the identity has no colors.
func (ci ColorIdentity) IsColorless() bool {
	return len(ci) == 0
}

// Symbols returns the single-letter symbols in WUBRG order.
func (ci ColorIdentity) Symbols() []string {
	out := make([]string, 0, len(ci))
	for _, c := range string(ci) {
		out = append(out, string(c))
	}
	return out
}

// Contains reports whether every color of other is part of ci.
func (ci ColorIdentity) Contains(other ColorIdentity) bool {
	for _, c := range string(other) {
		if !strings.ContainsRune(string(ci), c) {
			return false
		}
	}
	return true
}

// Union merges two identities.
func (ci ColorIdentity) Union(other ColorIdentity) ColorIdentity {
	return Canonicalize(string(ci) + string(other))
}

// SearchFilter returns the Scryfall predicate restricting results to cards
// playable under this identity. Colorless identities return an empty filter.
func (ci ColorIdentity) SearchFilter() string {
	if ci.IsColorless() {
		return ""
	}
	return "id<=" + strings.ToLower(string(ci))
}

// String renders the identity, using "C" for colorless.
func (ci ColorIdentity) String() string {
	if ci.IsColorless() {
		return "C"
	}
	return string(ci)
}
