package commander

import "strings"

// splitSeparator joins the faces of split, adventure and double-faced cards.
const splitSeparator = "//"

// NormalizeName returns the front-face name of a card with whitespace
// collapsed. It is idempotent.
func NormalizeName(name string) string {
	if i := strings.Index(name, splitSeparator); i >= 0 {
		name = name[:i]
	}
	return strings.Join(strings.Fields(name), " ")
}

// NameKey is the case-insensitive identity of a card name, used for
// deduplication and bucket membership.
func NameKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}

// NameSet is a set of card names compared by NameKey.
type NameSet map[string]struct{}

// NewNameSet builds a NameSet from raw names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name and reports whether it was not already present.
func (s NameSet) Add(name string) bool {
	key := NameKey(name)
	if key == "" {
		return false
	}
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[NameKey(name)]
	return ok
}
