package widget_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ValidateArgs(t *testing.T) {
	reg := widget.DefaultRegistry()

	assert.NoError(t, reg.ValidateArgs(widget.TextInput, map[string]any{"placeholder": "Answer", "rows": 2}))
	assert.NoError(t, reg.ValidateArgs(widget.TextInput, map[string]any{}), "optional params may be omitted")

	err := reg.ValidateArgs(widget.MultipleChoiceInput, map[string]any{"colour": "red"})
	require.Error(t, err)
	errs := widget.ValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), `"choices": required`)
	assert.Contains(t, errs[1].Error(), `"colour": not defined`)

	err = reg.ValidateArgs(widget.TextInput, map[string]any{"rows": "two"})
	var verr *widget.ValidationError
	require.True(t, errors.As(widget.ValidationErrors(err)[0], &verr))
	assert.Equal(t, "rows", verr.Key)

	assert.ErrorIs(t, reg.ValidateArgs("Sketchpad", nil), widget.ErrUnknownWidget)
}

func TestDecode(t *testing.T) {
	var args widget.TextInputArgs
	require.NoError(t, widget.Decode(map[string]any{"placeholder": "Go", "rows": "3"}, &args))
	assert.Equal(t, widget.TextInputArgs{Placeholder: "Go", Rows: 3}, args)

	var mc widget.MultipleChoiceArgs
	require.NoError(t, widget.Decode(map[string]any{"choices": []any{"a", "b"}}, &mc))
	assert.Equal(t, []string{"a", "b"}, mc.Choices)
}

func TestNormalizeAnswer(t *testing.T) {
	reg := widget.DefaultRegistry()
	ctx := context.Background()

	numeric, err := reg.Definition(ctx, widget.NumericInput)
	require.NoError(t, err)
	v, err := numeric.NormalizeAnswer(" 2,5 ", nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
	_, err = numeric.NormalizeAnswer("two", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidChange)

	mc, err := reg.Definition(ctx, widget.MultipleChoiceInput)
	require.NoError(t, err)
	args := map[string]any{"choices": []any{"red", "green"}}
	v, err = mc.NormalizeAnswer("green", args)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = mc.NormalizeAnswer(0.0, args)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	_, err = mc.NormalizeAnswer(5, args)
	assert.Error(t, err)

	text, err := reg.Definition(ctx, widget.TextInput)
	require.NoError(t, err)
	v, err = text.NormalizeAnswer("  hello ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestDefinition_WithDefaults(t *testing.T) {
	d, err := widget.DefaultRegistry().Get(widget.Continue)
	require.NoError(t, err)

	assert.Equal(t, "Continue", d.WithDefaults(nil)["buttonText"])
	assert.Equal(t, "Next", d.WithDefaults(map[string]any{"buttonText": "Next"})["buttonText"])
}

func TestDefinition_JSON(t *testing.T) {
	d, err := widget.DefaultRegistry().Get(widget.MultipleChoiceInput)
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"obj_type":"[html]"`)

	var back widget.Definition
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back.Params, 1)
	assert.Error(t, back.ValidateArgs(map[string]any{"choices": []any{"<script>x</script>"}}), "decoded schema keeps its element type")
}

func TestRemoteSource(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		if r.URL.Path != "/widgets/interactive/NumericInput" {
			http.NotFound(w, r)
			return
		}
		d, _ := widget.DefaultRegistry().Get(widget.NumericInput)
		_ = json.NewEncoder(w).Encode(widget.DescriptionResponse{Widget: d})
	}))
	defer srv.Close()

	src := widget.NewRemoteSource(srv.URL+"/", srv.Client())
	ctx := context.Background()

	d, err := src.Definition(ctx, widget.NumericInput)
	require.NoError(t, err)
	assert.Equal(t, widget.NumericInput, d.ID)

	v, err := d.NormalizeAnswer("4", nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v, "built-in normalization is attached")

	_, err = src.Definition(ctx, widget.NumericInput)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "definitions are cached")

	_, err = src.Definition(ctx, "Sketchpad")
	assert.ErrorIs(t, err, widget.ErrUnknownWidget)

	validator := widget.Validator{Source: src}
	assert.NoError(t, validator.ValidateArgs(widget.NumericInput, map[string]any{}))
}
