package domain

const (
	// EndDest is the terminal sentinel a rule may point to instead of a state.
	EndDest = "END"

	// DefaultRuleName marks the catch-all rule of a handler.
	DefaultRuleName = "Default"

	// SubmitHandler is the handler the player classifies answers against.
	SubmitHandler = "submit"

	// MaxStateNameLength bounds state names accepted by the editor.
	MaxStateNameLength = 50
)

// Content block types.
const (
	ContentText  = "text"
	ContentImage = "image"
	ContentVideo = "video"
)

// ContentBlock is one piece of a state's body.
type ContentBlock struct {
	Type  string `json:"type" yaml:"type" mapstructure:"type"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
}

// ParamChange assigns a parameter using a generator when a state is entered
// or a rule fires.
type ParamChange struct {
	Name              string         `json:"name" yaml:"name" mapstructure:"name"`
	GeneratorID       string         `json:"generator_id" yaml:"generator_id" mapstructure:"generator_id"`
	CustomizationArgs map[string]any `json:"customization_args,omitempty" yaml:"customization_args,omitempty" mapstructure:"customization_args"`
}

// RuleSpec is an edge of the graph: when Condition holds for an answer the
// learner moves to Dest.
type RuleSpec struct {
	// Name identifies the rule kind (e.g. "Equals", "Default").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Description is a template such as "is equal to {{x|NonnegativeInt}}".
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	// Inputs holds the values substituted into Description.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty" mapstructure:"inputs"`

	// Condition is an expression over `answer`, `inputs` and `params`.
	// Empty means the rule always matches.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`

	// Dest is a state name or EndDest.
	Dest string `json:"dest" yaml:"dest" mapstructure:"dest"`

	Feedback     []string      `json:"feedback,omitempty" yaml:"feedback,omitempty" mapstructure:"feedback"`
	ParamChanges []ParamChange `json:"param_changes,omitempty" yaml:"param_changes,omitempty" mapstructure:"param_changes"`
}

// IsDefault reports whether the rule is the unconditional fallback.
func (r RuleSpec) IsDefault() bool {
	return r.Name == DefaultRuleName || (r.Name == "" && r.Condition == "")
}

// Handler groups the rule specs reacting to one widget event.
type Handler struct {
	Name      string     `json:"name" yaml:"name" mapstructure:"name"`
	RuleSpecs []RuleSpec `json:"rule_specs" yaml:"rule_specs" mapstructure:"rule_specs"`
}

// Widget is the interactive part of a state.
type Widget struct {
	WidgetID          string         `json:"widget_id" yaml:"widget_id" mapstructure:"widget_id"`
	CustomizationArgs map[string]any `json:"customization_args,omitempty" yaml:"customization_args,omitempty" mapstructure:"customization_args"`
	Handlers          []Handler      `json:"handlers" yaml:"handlers" mapstructure:"handlers"`
	Sticky            bool           `json:"sticky,omitempty" yaml:"sticky,omitempty" mapstructure:"sticky"`
}

// Handler returns the handler with the given name, if any.
func (w *Widget) Handler(name string) (*Handler, bool) {
	for i := range w.Handlers {
		if w.Handlers[i].Name == name {
			return &w.Handlers[i], true
		}
	}
	return nil, false
}

// State is one node of an exploration. Its name is the key it is stored
// under in Exploration.States.
type State struct {
	Content      []ContentBlock `json:"content" yaml:"content" mapstructure:"content"`
	ParamChanges []ParamChange  `json:"param_changes" yaml:"param_changes" mapstructure:"param_changes"`
	Widget       Widget         `json:"widget" yaml:"widget" mapstructure:"widget"`
}

// NewState creates a state with an empty body and a text input whose
// default rule loops back to the state itself.
func NewState(name string) *State {
	return &State{
		Content:      []ContentBlock{{Type: ContentText, Value: ""}},
		ParamChanges: []ParamChange{},
		Widget: Widget{
			WidgetID:          "TextInput",
			CustomizationArgs: map[string]any{},
			Handlers: []Handler{{
				Name: SubmitHandler,
				RuleSpecs: []RuleSpec{{
					Name:        DefaultRuleName,
					Description: DefaultRuleName,
					Dest:        name,
				}},
			}},
		},
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{
		Content:      append([]ContentBlock(nil), s.Content...),
		ParamChanges: cloneParamChanges(s.ParamChanges),
		Widget: Widget{
			WidgetID:          s.Widget.WidgetID,
			CustomizationArgs: cloneMap(s.Widget.CustomizationArgs),
			Handlers:          CloneHandlers(s.Widget.Handlers),
			Sticky:            s.Widget.Sticky,
		},
	}
	return out
}

// CloneHandlers deep-copies a handler list.
func CloneHandlers(handlers []Handler) []Handler {
	if handlers == nil {
		return nil
	}
	out := make([]Handler, len(handlers))
	for i, h := range handlers {
		out[i] = Handler{Name: h.Name}
		if h.RuleSpecs != nil {
			out[i].RuleSpecs = make([]RuleSpec, len(h.RuleSpecs))
			for j, r := range h.RuleSpecs {
				r.Inputs = cloneMap(r.Inputs)
				r.Feedback = append([]string(nil), r.Feedback...)
				r.ParamChanges = cloneParamChanges(r.ParamChanges)
				out[i].RuleSpecs[j] = r
			}
		}
	}
	return out
}

// CloneParamChanges deep-copies a param change list.
func CloneParamChanges(pcs []ParamChange) []ParamChange {
	return cloneParamChanges(pcs)
}

// CloneArgs deep-copies a customization args map.
func CloneArgs(m map[string]any) map[string]any {
	return cloneMap(m)
}

func cloneParamChanges(pcs []ParamChange) []ParamChange {
	if pcs == nil {
		return nil
	}
	out := make([]ParamChange, len(pcs))
	for i, pc := range pcs {
		out[i] = ParamChange{
			Name:              pc.Name,
			GeneratorID:       pc.GeneratorID,
			CustomizationArgs: cloneMap(pc.CustomizationArgs),
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
