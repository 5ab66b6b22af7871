package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunExplorationStoreContract runs a suite of tests to verify that an
// ExplorationStore implementation adheres to the defined interface contract.
func RunExplorationStoreContract(t *testing.T, store ExplorationStore) {
	ctx := context.Background()
	id := "contract-test-exp-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		exp := domain.NewExploration(id, "Contract", "Start")
		exp.Version = 3
		exp.States["Start"].Content = []domain.ContentBlock{{Type: domain.ContentText, Value: "Hello"}}
		exp.States["Start"].Widget.CustomizationArgs["placeholder"] = "Type here"

		require.NoError(t, store.Save(ctx, exp), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "Contract", loaded.Title)
		assert.Equal(t, 3, loaded.Version)
		assert.Equal(t, "Start", loaded.InitStateName)
		require.Contains(t, loaded.States, "Start")
		assert.Equal(t, "Hello", loaded.States["Start"].Content[0].Value)
		assert.Equal(t, "Type here", loaded.States["Start"].Widget.CustomizationArgs["placeholder"])
		assert.Equal(t, "Start", loaded.States["Start"].Widget.Handlers[0].RuleSpecs[0].Dest)
	})

	t.Run("Load Returns Isolated Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Title = "Mutated"
		delete(loaded.States, "Start")

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Contract", again.Title)
		assert.Contains(t, again.States, "Start")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrExplorationNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, domain.NewExploration(id1, "One", "")))
		require.NoError(t, store.Save(ctx, domain.NewExploration(id2, "Two", "")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrExplorationNotFound, "Load after Delete should return ErrExplorationNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Deleting twice should be a no-op")
	})
}

// RunAnswerLogContract verifies an AnswerLog implementation.
func RunAnswerLogContract(t *testing.T, log AnswerLog) {
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, "exp", "Intro", "4"))
	require.NoError(t, log.Record(ctx, "exp", "Intro", "5"))
	require.NoError(t, log.Record(ctx, "exp", "Other", "x"))

	answers, err := log.Answers(ctx, "exp", "Intro")
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "5"}, answers, "answers keep submission order")

	empty, err := log.Answers(ctx, "exp", "Missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
