/*
Package dsl provides a fluent Go builder for explorations.

It is an alternative to markdown repositories when explorations are
generated by code or set up in tests.

	b := dsl.New("capitals", "Capitals")

	b.Add("Ask").
		Text("What is the capital of France?").
		Rule("Equals", "answer == 'Paris'", "Done", "Right!").
		Otherwise("Not quite.")

	b.Add("Done").
		Text("Well done.").
		Terminal()

	exp, err := b.Build()
*/
package dsl
