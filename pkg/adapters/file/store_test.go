package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/lessonkit/pkg/adapters/file"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements ExplorationStore
var _ ports.ExplorationStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunExplorationStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	src := `
title: Counting
init_state_name: Ask
states:
  Ask:
    content:
      - type: text
        value: "What is 2 + 2?"
    widget:
      widget_id: NumericInput
      handlers:
        - name: submit
          rule_specs:
            - name: Equals
              description: "is equal to {{x|Real}}"
              inputs: {x: 4}
              condition: "answer == inputs.x"
              dest: END
            - name: Default
              dest: Ask
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counting.yaml"), []byte(src), 0644))

	store := file.New(dir)
	ctx := context.Background()

	exp, err := store.Load(ctx, "counting")
	require.NoError(t, err)
	assert.Equal(t, "counting", exp.ID, "ID defaults to file name")
	assert.Equal(t, "Ask", exp.InitStateName)
	rules := exp.States["Ask"].Widget.Handlers[0].RuleSpecs
	require.Len(t, rules, 2)
	assert.Equal(t, domain.EndDest, rules[0].Dest)
	assert.Equal(t, "answer == inputs.x", rules[0].Condition)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"counting"}, ids)

	// Saving supersedes the YAML source with a JSON snapshot.
	exp.Version = 1
	require.NoError(t, store.Save(ctx, exp))
	_, err = os.Stat(filepath.Join(dir, "counting.yaml"))
	assert.True(t, os.IsNotExist(err))

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"counting"}, ids)
}

func TestFileStore_EmptyID(t *testing.T) {
	store := file.New(t.TempDir())
	_, err := store.Load(context.Background(), "")
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), &domain.Exploration{}))
}
