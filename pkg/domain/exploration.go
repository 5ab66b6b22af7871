package domain

import (
	"sort"
)

// DefaultInitStateName is used when an exploration is created without one.
const DefaultInitStateName = "Introduction"

// ParamSpec declares an exploration-level parameter.
type ParamSpec struct {
	ObjType string `json:"obj_type" yaml:"obj_type" mapstructure:"obj_type"`
}

// Exploration is the lesson graph: named states plus settings.
type Exploration struct {
	ID            string               `json:"id" yaml:"id"`
	Title         string               `json:"title" yaml:"title"`
	Category      string               `json:"category" yaml:"category"`
	Version       int                  `json:"version" yaml:"version"`
	InitStateName string               `json:"init_state_name" yaml:"init_state_name"`
	ParamSpecs    map[string]ParamSpec `json:"param_specs,omitempty" yaml:"param_specs,omitempty"`
	ParamChanges  []ParamChange        `json:"param_changes,omitempty" yaml:"param_changes,omitempty"`
	States        map[string]*State    `json:"states" yaml:"states"`
}

// NewExploration creates an exploration holding a single default state.
func NewExploration(id, title, initStateName string) *Exploration {
	if initStateName == "" {
		initStateName = DefaultInitStateName
	}
	return &Exploration{
		ID:            id,
		Title:         title,
		InitStateName: initStateName,
		ParamSpecs:    map[string]ParamSpec{},
		States: map[string]*State{
			initStateName: NewState(initStateName),
		},
	}
}

// StateNames returns state names in lexical order.
func (e *Exploration) StateNames() []string {
	names := make([]string, 0, len(e.States))
	for name := range e.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the exploration.
func (e *Exploration) Clone() *Exploration {
	if e == nil {
		return nil
	}
	out := *e
	out.ParamSpecs = make(map[string]ParamSpec, len(e.ParamSpecs))
	for k, v := range e.ParamSpecs {
		out.ParamSpecs[k] = v
	}
	out.ParamChanges = cloneParamChanges(e.ParamChanges)
	out.States = make(map[string]*State, len(e.States))
	for name, s := range e.States {
		out.States[name] = s.Clone()
	}
	return &out
}
