package widget

import (
	"errors"
	"fmt"
)

// ErrUnknownWidget is returned for widget IDs with no definition.
var ErrUnknownWidget = errors.New("unknown widget")

// ValidationError is a single customization arg failure.
type ValidationError struct {
	Widget string
	Key    string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: arg %q: %s", e.Widget, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s: arg %q: %s (got %T)", e.Widget, e.Key, e.Reason, e.Value)
}

// AggregateError collects every failure found in one set of args.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d invalid customization args:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// ValidationErrors returns the individual failures wrapped in err, if any.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
