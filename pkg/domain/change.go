package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Change properties. State-scoped properties carry a StateName; the
// exploration-scoped ones leave it empty.
const (
	PropertyContent                 = "content"
	PropertyParamChanges            = "param_changes"
	PropertyWidgetID                = "widget_id"
	PropertyWidgetCustomizationArgs = "widget_customization_args"
	PropertyWidgetHandlers          = "widget_handlers"
	PropertyWidgetSticky            = "widget_sticky"

	// PropertyStateName records a rename: OldValue/NewValue are the names.
	PropertyStateName = "state_name"
	// PropertyAddState records a new state; NewValue holds its definition.
	PropertyAddState = "add_state"
	// PropertyDeleteState records a removal; OldValue holds the definition.
	PropertyDeleteState = "delete_state"

	PropertyTitle         = "title"
	PropertyCategory      = "category"
	PropertyInitStateName = "init_state_name"
	PropertyParamSpecs    = "param_specs"
)

// Change is one recorded edit.
type Change struct {
	Property  string `json:"property"`
	StateName string `json:"state_name,omitempty"`
	NewValue  any    `json:"new_value,omitempty"`
	OldValue  any    `json:"old_value,omitempty"`
}

// IsStructural reports whether the change alters the set of state names.
func (c Change) IsStructural() bool {
	switch c.Property {
	case PropertyStateName, PropertyAddState, PropertyDeleteState:
		return true
	}
	return false
}

// Key identifies the property a change targets.
func (c Change) Key() string {
	return c.Property + "\x00" + c.StateName
}

// DecodeValue converts a change value into T. Values recorded in-process
// already have the right type; values that crossed a JSON boundary are
// decoded using their json tags.
func DecodeValue[T any](v any) (T, error) {
	var out T
	if t, ok := v.(T); ok {
		return t, nil
	}
	if v == nil {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(v); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidChange, err)
	}
	return out, nil
}

// DeletedState is the OldValue of a delete_state change: the removed state
// and the handlers of every source whose rules were redirected.
type DeletedState struct {
	State    *State               `json:"state"`
	Handlers map[string][]Handler `json:"handlers,omitempty"`
}
