package graph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// IncomingState is a source state together with the descriptions of its
// rules that lead to the queried state, in handler order.
type IncomingState struct {
	State *domain.State `json:"state"`
	Rules []string      `json:"rules"`
}

// GetIncomingStates returns every state with a rule whose dest is name,
// including name itself when it loops back. The map is empty when nothing
// points at name.
func (s *Store) GetIncomingStates(name string) map[string]IncomingState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incoming := make(map[string]IncomingState)
	for source, st := range s.exp.States {
		choices := Choices(st.Widget.CustomizationArgs)
		for _, h := range st.Widget.Handlers {
			for _, r := range h.RuleSpecs {
				if r.Dest != name {
					continue
				}
				entry, ok := incoming[source]
				if !ok {
					entry = IncomingState{State: st.Clone()}
				}
				entry.Rules = append(entry.Rules, DescribeRule(r, choices))
				incoming[source] = entry
			}
		}
	}
	return incoming
}

// Choices extracts the `choices` customization arg as strings.
func Choices(args map[string]any) []string {
	switch v := args["choices"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, c := range v {
			out[i] = fmt.Sprint(c)
		}
		return out
	}
	return nil
}

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\|\s*(\w+)\s*\}\}`)

// DescribeRule renders a human readable description of r. Placeholders of
// the form {{x|Type}} take their value from r.Inputs; when choices are given
// an integer input is shown as the choice it indexes.
func DescribeRule(r domain.RuleSpec, choices []string) string {
	if r.IsDefault() {
		return domain.DefaultRuleName
	}

	desc := r.Description
	if desc == "" {
		if r.Condition != "" {
			return "Answer matches " + r.Condition
		}
		return r.Name
	}

	desc = placeholder.ReplaceAllStringFunc(desc, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		value, ok := r.Inputs[parts[1]]
		if !ok {
			return m
		}
		if choices != nil {
			if idx, ok := toIndex(value); ok && idx >= 0 && idx < len(choices) {
				return strconv.Quote(choices[idx])
			}
		}
		if str, ok := value.(string); ok {
			return strconv.Quote(str)
		}
		return fmt.Sprint(value)
	})
	return "Answer " + strings.TrimSpace(desc)
}

func toIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
