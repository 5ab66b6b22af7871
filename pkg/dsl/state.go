package dsl

import (
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/widget"
)

// StateBuilder provides a fluent API for configuring a state.
// A new state uses a text input whose default rule loops back to it.
type StateBuilder struct {
	name  string
	state *domain.State
}

// Text appends a text block.
func (s *StateBuilder) Text(content string) *StateBuilder {
	s.state.Content = append(s.state.Content, domain.ContentBlock{Type: domain.ContentText, Value: content})
	return s
}

// Image appends an image block.
func (s *StateBuilder) Image(src string) *StateBuilder {
	s.state.Content = append(s.state.Content, domain.ContentBlock{Type: domain.ContentImage, Value: src})
	return s
}

// Widget sets the interactive widget of the state.
func (s *StateBuilder) Widget(widgetID string) *StateBuilder {
	s.state.Widget.WidgetID = widgetID
	return s
}

// Arg sets a customization arg of the widget.
func (s *StateBuilder) Arg(key string, value any) *StateBuilder {
	s.state.Widget.CustomizationArgs[key] = value
	return s
}

// Param adds a parameter change applied when the state is entered.
func (s *StateBuilder) Param(name, generatorID string, args map[string]any) *StateBuilder {
	s.state.ParamChanges = append(s.state.ParamChanges, domain.ParamChange{
		Name:              name,
		GeneratorID:       generatorID,
		CustomizationArgs: args,
	})
	return s
}

// Rule adds a conditional rule to the submit handler, ahead of the default rule.
func (s *StateBuilder) Rule(name, condition, dest string, feedback ...string) *StateBuilder {
	return s.add(domain.RuleSpec{
		Name:        name,
		Description: name,
		Condition:   condition,
		Dest:        dest,
		Feedback:    feedback,
	})
}

// Spec adds a fully described rule to the submit handler, ahead of the default rule.
func (s *StateBuilder) Spec(rule domain.RuleSpec) *StateBuilder {
	return s.add(rule)
}

// Go points the default rule at dest.
func (s *StateBuilder) Go(dest string, feedback ...string) *StateBuilder {
	def := s.defaultRule()
	def.Dest = dest
	def.Feedback = feedback
	return s
}

// Otherwise keeps the learner on the state with feedback when no rule matches.
func (s *StateBuilder) Otherwise(feedback ...string) *StateBuilder {
	return s.Go(s.name, feedback...)
}

// Terminal makes the state end the exploration.
func (s *StateBuilder) Terminal() *StateBuilder {
	return s.Widget(widget.EndExploration)
}

// Build returns a copy of the underlying state.
func (s *StateBuilder) Build() *domain.State {
	st := s.state.Clone()
	if len(st.Content) == 0 {
		st.Content = []domain.ContentBlock{{Type: domain.ContentText, Value: ""}}
	}
	return st
}

func (s *StateBuilder) submit() *domain.Handler {
	h, _ := s.state.Widget.Handler(domain.SubmitHandler)
	return h
}

func (s *StateBuilder) add(rule domain.RuleSpec) *StateBuilder {
	h := s.submit()
	n := len(h.RuleSpecs)
	h.RuleSpecs = append(h.RuleSpecs[:n-1:n-1], rule, h.RuleSpecs[n-1])
	return s
}

func (s *StateBuilder) defaultRule() *domain.RuleSpec {
	h := s.submit()
	return &h.RuleSpecs[len(h.RuleSpecs)-1]
}
