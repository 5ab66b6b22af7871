package widget

import (
	"fmt"
	"reflect"
	"strings"
)

// Type is the declared type of a widget parameter.
type Type interface {
	// Name is the wire name of the type (e.g., "string", "[string]").
	Name() string
	Validate(value any) error
}

// StringType validates strings, optionally bounding their length.
type StringType struct {
	MaxLen int
}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if t.MaxLen > 0 && len(s) > t.MaxLen {
		return fmt.Errorf("longer than %d characters", t.MaxLen)
	}
	return nil
}

// IntType validates whole numbers no smaller than Min.
type IntType struct {
	Min *int64
}

func (t *IntType) Name() string {
	if t.Min != nil && *t.Min == 0 {
		return "nonnegative_int"
	}
	return "int"
}

func (t *IntType) Validate(value any) error {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		// JSON numbers arrive as float64.
		if v != float64(int64(v)) {
			return fmt.Errorf("expected int, got float (not a whole number)")
		}
		n = int64(v)
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
	if t.Min != nil && n < *t.Min {
		return fmt.Errorf("must be at least %d", *t.Min)
	}
	return nil
}

// FloatType validates any number.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int32, int64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

// BoolType validates booleans.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// SliceType validates lists whose elements all satisfy Elem.
type SliceType struct {
	Elem     Type
	MinItems int
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.Elem.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	if rv.Len() < t.MinItems {
		return fmt.Errorf("expected at least %d items, got %d", t.MinItems, rv.Len())
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.Elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// CustomType applies a caller supplied check.
type CustomType struct {
	name  string
	check func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.check(value)
}

func String() Type { return &StringType{} }

// BoundedString limits strings to maxLen bytes.
func BoundedString(maxLen int) Type { return &StringType{MaxLen: maxLen} }

func Int() Type { return &IntType{} }

// NonnegativeInt accepts whole numbers >= 0, such as choice indexes.
func NonnegativeInt() Type {
	zero := int64(0)
	return &IntType{Min: &zero}
}

func Float() Type { return &FloatType{} }

func Bool() Type { return &BoolType{} }

func Slice(elem Type) Type { return &SliceType{Elem: elem} }

// NonEmptySlice is a Slice requiring at least one element.
func NonEmptySlice(elem Type) Type { return &SliceType{Elem: elem, MinItems: 1} }

func Custom(name string, check func(any) error) Type {
	return &CustomType{name: name, check: check}
}

// HTML is a string holding an HTML fragment. Script elements are refused.
func HTML() Type {
	return Custom("html", func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected html string, got %T", v)
		}
		if strings.Contains(strings.ToLower(s), "<script") {
			return fmt.Errorf("script elements are not allowed")
		}
		return nil
	})
}

// ParseType converts a wire type name back to a Type. Unknown names, such
// as custom types described by a remote server, accept any value.
func ParseType(name string) (Type, error) {
	if len(name) > 2 && name[0] == '[' && name[len(name)-1] == ']' {
		elem, err := ParseType(name[1 : len(name)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elem), nil
	}

	switch name {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "nonnegative_int":
		return NonnegativeInt(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "html":
		return HTML(), nil
	case "":
		return nil, fmt.Errorf("empty type name")
	default:
		return Custom(name, func(any) error { return nil }), nil
	}
}
