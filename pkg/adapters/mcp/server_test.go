package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/lessonkit/pkg/adapters/memory"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/editor"
	"github.com/aretw0/lessonkit/pkg/player"
	"github.com/aretw0/lessonkit/pkg/widget"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiz() *domain.Exploration {
	exp := domain.NewExploration("quiz", "Quiz", "Ask")
	exp.Version = 1
	ask := exp.States["Ask"]
	ask.Content = []domain.ContentBlock{{Type: domain.ContentText, Value: "Capital of France?"}}
	ask.Widget.Handlers[0].RuleSpecs = []domain.RuleSpec{
		{Name: "Equals", Description: "is equal to {{x|UnicodeString}}", Inputs: map[string]any{"x": "Paris"}, Condition: "answer == inputs.x", Dest: "Done"},
		{Name: domain.DefaultRuleName, Dest: "Ask"},
	}
	done := domain.NewState("Done")
	done.Widget.WidgetID = widget.Continue
	done.Widget.Handlers[0].RuleSpecs = []domain.RuleSpec{{Name: domain.DefaultRuleName, Dest: domain.EndDest}}
	exp.States["Done"] = done
	return exp
}

func newServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore(quiz())
	s := NewServer(
		player.NewEngine(store),
		editor.NewService(store, editor.WithArgValidator(widget.DefaultRegistry())),
		WithArgValidator(widget.DefaultRegistry()),
	)
	return s, store
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestGetExploration(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleGetExploration(context.Background(), callRequest(map[string]any{"exploration_id": "quiz"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var exp domain.Exploration
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &exp))
	assert.Equal(t, "Quiz", exp.Title)
	assert.ElementsMatch(t, []string{"Ask", "Done"}, exp.StateNames())

	res, err = s.handleGetExploration(context.Background(), callRequest(map[string]any{"exploration_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleGetExploration(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGraphMermaid(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.handleMermaid(context.Background(), callRequest(map[string]any{"exploration_id": "quiz"}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "graph TD")
	assert.Contains(t, text, "Ask -- \"Answer is equal to 'Paris'\" --> Done")
}

func TestIncomingStates(t *testing.T) {
	s, _ := newServer(t)

	resp, err := s.handleIncoming(context.Background(), mcp.CallToolRequest{}, IncomingArgs{ExplorationID: "quiz", StateName: "Done"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Ask": {`Answer is equal to "Paris"`}}, resp.Incoming)

	resp, err = s.handleIncoming(context.Background(), mcp.CallToolRequest{}, IncomingArgs{ExplorationID: "quiz", StateName: "Ask"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Ask": {"Default"}}, resp.Incoming)
}

func TestRenameState(t *testing.T) {
	s, store := newServer(t)
	ctx := context.Background()

	resp, err := s.handleRename(ctx, mcp.CallToolRequest{}, RenameArgs{ExplorationID: "quiz", OldName: "Done", NewName: "Finish"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Version)
	assert.Equal(t, []string{"renamed state Done to Finish"}, resp.Changes)

	exp, err := store.Load(ctx, "quiz")
	require.NoError(t, err)
	assert.Contains(t, exp.States, "Finish")
	assert.NotContains(t, exp.States, "Done")
	assert.Equal(t, "Finish", exp.States["Ask"].Widget.Handlers[0].RuleSpecs[0].Dest)
}

func TestRenameState_Rejected(t *testing.T) {
	s, store := newServer(t)
	ctx := context.Background()

	_, err := s.handleRename(ctx, mcp.CallToolRequest{}, RenameArgs{ExplorationID: "quiz", OldName: "Done", NewName: "Ask"})
	assert.ErrorIs(t, err, domain.ErrDuplicateStateName)

	_, err = s.handleRename(ctx, mcp.CallToolRequest{}, RenameArgs{ExplorationID: "quiz", OldName: "Done", NewName: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidStateName)

	exp, err := store.Load(ctx, "quiz")
	require.NoError(t, err)
	assert.Equal(t, 1, exp.Version)
	assert.Contains(t, exp.States, "Done")
}

func TestPlayTools(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	page, err := s.handleStart(ctx, mcp.CallToolRequest{}, ExplorationArgs{ExplorationID: "quiz"})
	require.NoError(t, err)
	assert.Equal(t, "Ask", page.StateID)

	page, err = s.handleSubmit(ctx, mcp.CallToolRequest{}, SubmitArgs{
		ExplorationID: "quiz",
		StateID:       page.StateID,
		Answer:        "Paris",
		BlockNumber:   page.BlockNumber,
		Params:        `{"score": 1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Done", page.StateID)
	assert.Equal(t, 1, page.BlockNumber)
	assert.EqualValues(t, 1, page.Params["score"])

	_, err = s.handleSubmit(ctx, mcp.CallToolRequest{}, SubmitArgs{ExplorationID: "quiz", StateID: "Ask", Params: "[1"})
	assert.ErrorContains(t, err, "params must be a JSON object")
}

func TestToolsAreListed(t *testing.T) {
	s, _ := newServer(t)

	resp := s.MCPServer().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"get_exploration", "incoming_states", "rename_state", "graph_mermaid", "start_exploration", "submit_answer"} {
		assert.Contains(t, string(raw), `"`+name+`"`)
	}
}
