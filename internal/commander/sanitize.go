package commander

import "fmt"

// CountMismatchError reports a sanitized name list whose length differs
// from the planned slot count.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("expected %d card names, got %d", e.Expected, e.Got)
}

// Sanitize normalizes raw card names, drops empty entries, and removes
// duplicates by NameKey keeping the first occurrence. Names matching a
// reserved name (the commanders) are dropped as well.
//
// The cleaned list is returned even when its length differs from
// expected, together with a *CountMismatchError.
func Sanitize(raw []string, expected int, reserved ...string) ([]string, error) {
	seen := NewNameSet(reserved...)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name := NormalizeName(r)
		if name == "" {
			continue
		}
		if !seen.Add(name) {
			continue
		}
		out = append(out, name)
	}

	if len(out) != expected {
		return out, &CountMismatchError{Expected: expected, Got: len(out)}
	}
	return out, nil
}
