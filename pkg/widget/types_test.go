package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		value any
		ok    bool
	}{
		{"String", String(), "hi", true},
		{"String Rejects Int", String(), 3, false},
		{"Bounded String", BoundedString(3), "long", false},
		{"Int From JSON", Int(), 3.0, true},
		{"Int Rejects Fraction", Int(), 3.5, false},
		{"Nonnegative Rejects Negative", NonnegativeInt(), -1, false},
		{"Float Accepts Int", Float(), 2, true},
		{"Bool", Bool(), true, true},
		{"Slice Of Any", Slice(String()), []any{"a", "b"}, true},
		{"Slice Bad Element", Slice(String()), []any{"a", 1}, false},
		{"Non Empty Slice", NonEmptySlice(String()), []any{}, false},
		{"HTML", HTML(), "<b>bold</b>", true},
		{"HTML Script", HTML(), "<SCRIPT>alert(1)</script>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"string", "int", "nonnegative_int", "float", "bool", "html", "[string]", "[[int]]"} {
		typ, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, typ.Name())
	}

	custom, err := ParseType("Fraction")
	require.NoError(t, err)
	assert.Equal(t, "Fraction", custom.Name())
	assert.NoError(t, custom.Validate(map[string]any{"num": 1}))

	_, err = ParseType("")
	assert.Error(t, err)
}
