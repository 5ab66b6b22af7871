package graph

import (
	"fmt"
	"sort"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// Issue is a single structural problem in a graph.
type Issue struct {
	State  string // State the problem was found in
	Reason string
}

func (i Issue) Error() string {
	if i.State == "" {
		return i.Reason
	}
	return fmt.Sprintf("state %q: %s", i.State, i.Reason)
}

// ValidationError collects every Issue found by Validate.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return e.Issues[0].Error()
	}
	msg := fmt.Sprintf("%d graph errors:\n", len(e.Issues))
	for i, issue := range e.Issues {
		msg += fmt.Sprintf("  %d. %s\n", i+1, issue.Error())
	}
	return msg
}

// Unwrap lets errors.Is match domain.ErrInvalidChange.
func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidChange
}

// Validate checks the current graph. See Check.
func (s *Store) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Check(s.exp)
}

// Unreachable lists states that cannot be reached from the init state.
func (s *Store) Unreachable() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Unreachable(s.exp)
}

// Check reports a missing init state, rules pointing at unknown states and
// handlers lacking a default rule.
func Check(exp *domain.Exploration) error {
	var issues []Issue

	if _, ok := exp.States[exp.InitStateName]; !ok {
		issues = append(issues, Issue{Reason: fmt.Sprintf("init state %q does not exist", exp.InitStateName)})
	}

	for _, name := range exp.StateNames() {
		st := exp.States[name]
		for _, h := range st.Widget.Handlers {
			hasDefault := false
			for _, r := range h.RuleSpecs {
				if r.IsDefault() {
					hasDefault = true
				}
				if r.Dest == domain.EndDest {
					continue
				}
				if _, ok := exp.States[r.Dest]; !ok {
					issues = append(issues, Issue{State: name, Reason: fmt.Sprintf("rule %q points at unknown state %q", r.Name, r.Dest)})
				}
			}
			if h.Name == domain.SubmitHandler && !hasDefault {
				issues = append(issues, Issue{State: name, Reason: "submit handler has no default rule"})
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// Unreachable walks rule destinations breadth first from the init state and
// returns the states never visited, sorted.
func Unreachable(exp *domain.Exploration) []string {
	visited := make(map[string]bool)
	queue := []string{exp.InitStateName}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		st, ok := exp.States[current]
		if !ok {
			continue
		}
		visited[current] = true

		for _, h := range st.Widget.Handlers {
			for _, r := range h.RuleSpecs {
				if r.Dest != domain.EndDest && !visited[r.Dest] {
					queue = append(queue, r.Dest)
				}
			}
		}
	}

	var out []string
	for name := range exp.States {
		if !visited[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
