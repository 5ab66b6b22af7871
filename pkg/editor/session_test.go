package editor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/lessonkit/pkg/adapters/memory"
	"github.com/aretw0/lessonkit/pkg/dialog"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/editor"
	"github.com/aretw0/lessonkit/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSaver struct{}

func (failingSaver) SaveChanges(context.Context, string, int, []domain.Change, string) (int, error) {
	return 0, errors.New("connection refused")
}

func TestSession_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(seed())
	svc := editor.NewService(store)

	session, err := editor.Open(ctx, store, "exp", svc)
	require.NoError(t, err)
	assert.Equal(t, 1, session.Version())
	assert.False(t, session.Dirty())

	require.NoError(t, session.Graph().RenameState("B", "Bee"))
	require.NoError(t, session.Graph().SetContent("Bee", []domain.ContentBlock{{Type: domain.ContentText, Value: "b"}}))
	assert.True(t, session.Dirty())
	assert.Equal(t, []string{"renamed state B to Bee", "changed content of Bee"}, session.Describe())

	saved, err := session.Save(ctx, dialog.Static(dialog.Confirmed(" rename ")))
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 2, session.Version())
	assert.Zero(t, session.Recorder().Len())

	stored, err := store.Load(ctx, "exp")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, "b", stored.States["Bee"].Content[0].Value)
	assert.Equal(t, "Bee", stored.States["A"].Widget.Handlers[0].RuleSpecs[0].Dest)
}

func TestSession_SaveCancelled(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(seed())
	session := editor.NewSession(seed(), editor.NewService(store))

	require.NoError(t, session.Graph().SetTitle("Draft"))

	saved, err := session.Save(ctx, dialog.Static(dialog.Cancelled[string]()))
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, 1, session.Recorder().Len(), "cancelled save keeps the log")

	stored, err := store.Load(ctx, "exp")
	require.NoError(t, err)
	assert.Equal(t, "Seed", stored.Title)
}

func TestSession_SaveNothing(t *testing.T) {
	session := editor.NewSession(seed(), failingSaver{})
	_, err := session.Save(context.Background(), dialog.Static(dialog.Confirmed("x")))
	assert.ErrorIs(t, err, domain.ErrNothingToSave)
}

func TestSession_FailedSaveUnlocks(t *testing.T) {
	warnings := notify.NewWarningList(0)
	session := editor.NewSession(seed(), failingSaver{}, editor.WithNotifier(warnings))

	require.NoError(t, session.Graph().SetTitle("Draft"))

	saved, err := session.Save(context.Background(), dialog.Static(dialog.Confirmed("x")))
	require.Error(t, err)
	assert.False(t, saved)
	assert.False(t, session.Recorder().IsLockedForEditing())
	assert.Equal(t, 1, session.Recorder().Len())
	assert.Equal(t, 1, session.Version())
	require.NotEmpty(t, warnings.Warnings())
	assert.Contains(t, warnings.Warnings()[0], "connection refused")

	// Editing resumes after the failure.
	require.NoError(t, session.Graph().SetCategory("Maths"))
}

func TestSession_StaleVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(seed())
	svc := editor.NewService(store)

	first := editor.NewSession(seed(), svc)
	second := editor.NewSession(seed(), svc)

	require.NoError(t, first.Graph().SetTitle("First"))
	require.NoError(t, second.Graph().SetTitle("Second"))

	_, err := first.Save(ctx, dialog.Static(dialog.Confirmed("")))
	require.NoError(t, err)

	_, err = second.Save(ctx, dialog.Static(dialog.Confirmed("")))
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestSession_PromptHonoursContext(t *testing.T) {
	session := editor.NewSession(seed(), failingSaver{})
	require.NoError(t, session.Graph().SetTitle("Draft"))

	never := dialog.Prompt[string](func(context.Context) <-chan dialog.Outcome[string] {
		return make(chan dialog.Outcome[string])
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	saved, err := session.Save(ctx, never)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, saved)
}
