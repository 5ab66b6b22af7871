package dialog_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lessonkit/pkg/dialog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	ok := dialog.Confirmed("fix typo")
	msg, confirmed := ok.Payload()
	assert.True(t, confirmed)
	assert.Equal(t, "fix typo", msg)
	assert.Equal(t, "confirmed(fix typo)", ok.String())

	cancelled := dialog.Cancelled[string]()
	_, confirmed = cancelled.Payload()
	assert.False(t, confirmed)
	assert.Equal(t, "cancelled", cancelled.String())
}

func TestAwait(t *testing.T) {
	o, err := dialog.Await(context.Background(), dialog.Static(dialog.Confirmed(42)))
	require.NoError(t, err)
	assert.True(t, o.IsConfirmed())

	never := dialog.Prompt[int](func(context.Context) <-chan dialog.Outcome[int] {
		return make(chan dialog.Outcome[int])
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	o, err = dialog.Await(ctx, never)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, o.IsConfirmed(), "an abandoned dialog counts as cancelled")
}

func TestLine(t *testing.T) {
	var out bytes.Buffer
	o, err := dialog.Await(context.Background(), dialog.Line(strings.NewReader("Renamed intro\n"), &out, "Commit message: "))
	require.NoError(t, err)
	msg, ok := o.Payload()
	assert.True(t, ok)
	assert.Equal(t, "Renamed intro", msg)
	assert.Equal(t, "Commit message: ", out.String())

	o, err = dialog.Await(context.Background(), dialog.Line(strings.NewReader("\n"), &out, ""))
	require.NoError(t, err)
	assert.False(t, o.IsConfirmed())
}
