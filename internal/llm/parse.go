package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// stripCodeFence removes a surrounding markdown code fence such as
// ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseSpellList extracts the "spells" array from a model reply.
func ParseSpellList(text string) ([]string, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, ErrEmptyResponse
	}

	var reply struct {
		Spells *[]json.RawMessage `json:"spells"`
	}
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, &MalformedResponseError{Raw: text, Err: err}
	}
	if reply.Spells == nil {
		return nil, &MalformedResponseError{Raw: text, Err: errors.New(`missing "spells" array`)}
	}

	out := make([]string, 0, len(*reply.Spells))
	for _, raw := range *reply.Spells {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, &MalformedResponseError{Raw: text, Err: errors.New(`"spells" must contain only strings`)}
		}
		out = append(out, name)
	}
	return out, nil
}
