// Package dialog models modal interactions as a two-outcome operation: the
// user either confirms with a payload or cancels.
package dialog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Outcome is the result of a dialog: Confirmed(payload) or Cancelled.
type Outcome[T any] struct {
	confirmed bool
	payload   T
}

// Confirmed builds a confirming outcome.
func Confirmed[T any](payload T) Outcome[T] {
	return Outcome[T]{confirmed: true, payload: payload}
}

// Cancelled builds a cancelling outcome.
func Cancelled[T any]() Outcome[T] {
	return Outcome[T]{}
}

// IsConfirmed reports whether the user confirmed.
func (o Outcome[T]) IsConfirmed() bool { return o.confirmed }

// Payload returns the confirmed payload. ok is false for a cancelled outcome.
func (o Outcome[T]) Payload() (payload T, ok bool) {
	return o.payload, o.confirmed
}

func (o Outcome[T]) String() string {
	if !o.confirmed {
		return "cancelled"
	}
	return fmt.Sprintf("confirmed(%v)", o.payload)
}

// Prompt opens a dialog. The returned channel yields exactly one outcome
// once the dialog closes.
type Prompt[T any] func(ctx context.Context) <-chan Outcome[T]

// Await opens p and waits for it to close. If ctx ends first the dialog
// counts as cancelled and ctx.Err() is returned.
func Await[T any](ctx context.Context, p Prompt[T]) (Outcome[T], error) {
	select {
	case o, ok := <-p(ctx):
		if !ok {
			return Cancelled[T](), nil
		}
		return o, nil
	case <-ctx.Done():
		return Cancelled[T](), ctx.Err()
	}
}

// Static is a prompt that closes immediately with o.
func Static[T any](o Outcome[T]) Prompt[T] {
	return func(context.Context) <-chan Outcome[T] {
		ch := make(chan Outcome[T], 1)
		ch <- o
		return ch
	}
}

// Line asks question on w and reads one line from r. An empty line or end
// of input cancels.
func Line(r io.Reader, w io.Writer, question string) Prompt[string] {
	return func(ctx context.Context) <-chan Outcome[string] {
		ch := make(chan Outcome[string], 1)
		go func() {
			fmt.Fprint(w, question)
			line, _ := bufio.NewReader(r).ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "" {
				ch <- Cancelled[string]()
				return
			}
			ch <- Confirmed(line)
		}()
		return ch
	}
}
