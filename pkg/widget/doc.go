// Package widget describes interactive widgets and validates their
// customization args.
//
// Each widget has a Definition listing typed parameters. Args stored on a
// state are loosely typed (they come from YAML, JSON or the editor) and are
// checked against the definition before being accepted:
//
//	reg := widget.DefaultRegistry()
//	err := reg.ValidateArgs(widget.MultipleChoiceInput, map[string]any{
//	    "choices": []any{"red", "green"},
//	})
//
// Typed access goes through Decode:
//
//	var args widget.MultipleChoiceArgs
//	err := widget.Decode(state.Widget.CustomizationArgs, &args)
//
// Definitions can also be fetched from a running server with RemoteSource.
package widget
