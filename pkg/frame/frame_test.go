package frame_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBridge(t *testing.T) (*frame.Bridge, *[]any) {
	t.Helper()
	var got []any
	b, err := frame.NewBridge("https://learn.example.com", func(_ context.Context, answer any) error {
		got = append(got, answer)
		return nil
	})
	require.NoError(t, err)
	return b, &got
}

func TestBridge_SameOrigin(t *testing.T) {
	b, got := newBridge(t)

	handled, err := b.Receive(context.Background(), frame.Event{
		Origin: "https://LEARN.example.com:443",
		Data:   []byte(`{"submit": 4.5}`),
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []any{4.5}, *got)
}

func TestBridge_IgnoresForeignOrigin(t *testing.T) {
	b, got := newBridge(t)

	for _, origin := range []string{
		"https://evil.example.com",
		"http://learn.example.com",
		"https://learn.example.com:8443",
		"null",
		"",
	} {
		handled, err := b.Receive(context.Background(), frame.Event{Origin: origin, Data: []byte(`{"submit": 1}`)})
		assert.NoError(t, err, origin)
		assert.False(t, handled, origin)
	}
	assert.Empty(t, *got)
}

func TestBridge_IgnoresOtherMessages(t *testing.T) {
	b, got := newBridge(t)

	for _, data := range []string{`{"resize": 300}`, `not json`, `[1,2]`} {
		handled, err := b.Receive(context.Background(), frame.Event{Origin: b.Origin(), Data: []byte(data)})
		assert.NoError(t, err)
		assert.False(t, handled)
	}
	assert.Empty(t, *got)
}

func TestBridge_SubmitError(t *testing.T) {
	b, err := frame.NewBridge("http://localhost:8080", func(context.Context, any) error {
		return domain.ErrSubmissionPending
	})
	require.NoError(t, err)

	handled, err := b.Receive(context.Background(), frame.Event{Origin: "http://localhost:8080", Data: []byte(`{"submit":"x"}`)})
	assert.True(t, handled)
	assert.True(t, errors.Is(err, domain.ErrSubmissionPending))
}

func TestNewBridge_InvalidOrigin(t *testing.T) {
	_, err := frame.NewBridge("learn.example.com", nil)
	assert.Error(t, err)
}

func TestNumericInput(t *testing.T) {
	var posted []byte
	n := frame.NumericInput{Post: func(data []byte) error {
		posted = data
		return nil
	}}

	require.NoError(t, n.Submit(" 3.25 "))
	assert.JSONEq(t, `{"submit": 3.25}`, string(posted))

	posted = nil
	assert.Error(t, n.Submit("three"))
	assert.Nil(t, posted, "invalid numbers are not posted")
}
