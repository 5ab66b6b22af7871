package widget

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Param describes one customization arg a widget accepts.
type Param struct {
	Name        string
	Description string
	Type        Type
	Default     any
	Required    bool
}

type paramJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ObjType     string `json:"obj_type"`
	Default     any    `json:"default_value,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// MarshalJSON writes the type by its wire name.
func (p Param) MarshalJSON() ([]byte, error) {
	if p.Type == nil {
		return nil, fmt.Errorf("param %s: type is nil", p.Name)
	}
	return json.Marshal(paramJSON{
		Name:        p.Name,
		Description: p.Description,
		ObjType:     p.Type.Name(),
		Default:     p.Default,
		Required:    p.Required,
	})
}

// UnmarshalJSON resolves the wire type name with ParseType.
func (p *Param) UnmarshalJSON(data []byte) error {
	var raw paramJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := ParseType(raw.ObjType)
	if err != nil {
		return fmt.Errorf("param %s: %w", raw.Name, err)
	}
	*p = Param{
		Name:        raw.Name,
		Description: raw.Description,
		Type:        t,
		Default:     raw.Default,
		Required:    raw.Required,
	}
	return nil
}

// NormalizeFunc converts a raw learner answer into the value rule
// conditions are evaluated against.
type NormalizeFunc func(answer any, args map[string]any) (any, error)

// Definition is the parameter description of an interactive widget.
type Definition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Params      []Param  `json:"params"`
	Handlers    []string `json:"handlers"`
	// AnswerType names the type of normalized answers, e.g. "float".
	AnswerType string `json:"answer_type,omitempty"`

	Normalize NormalizeFunc `json:"-"`
}

// Param returns the named parameter.
func (d *Definition) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ValidateArgs checks args against the widget parameters. Unknown keys,
// missing required params and type mismatches are all reported.
func (d *Definition) ValidateArgs(args map[string]any) error {
	var errs []error

	for _, p := range d.Params {
		value, ok := args[p.Name]
		if !ok {
			if p.Required {
				errs = append(errs, &ValidationError{Widget: d.ID, Key: p.Name, Reason: "required"})
			}
			continue
		}
		if err := p.Type.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Widget: d.ID, Key: p.Name, Reason: err.Error(), Value: value})
		}
	}

	unknown := make([]string, 0)
	for key := range args {
		if _, ok := d.Param(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, &ValidationError{Widget: d.ID, Key: key, Reason: "not defined for this widget"})
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// WithDefaults returns a copy of args with missing params set to their defaults.
func (d *Definition) WithDefaults(args map[string]any) map[string]any {
	out := make(map[string]any, len(d.Params))
	for _, p := range d.Params {
		if p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	for k, v := range args {
		out[k] = v
	}
	return out
}

// NormalizeAnswer applies the widget's normalization, passing the answer
// through unchanged when the widget defines none.
func (d *Definition) NormalizeAnswer(answer any, args map[string]any) (any, error) {
	if d.Normalize == nil {
		return answer, nil
	}
	return d.Normalize(answer, d.WithDefaults(args))
}
