package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lessonkit/internal/metrics"
	"github.com/aretw0/lessonkit/pkg/adapters/memory"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/editor"
	"github.com/aretw0/lessonkit/pkg/player"
	"github.com/aretw0/lessonkit/pkg/stats"
	"github.com/aretw0/lessonkit/pkg/widget"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiz() *domain.Exploration {
	exp := domain.NewExploration("quiz", "Quiz", "Ask")
	exp.Version = 1
	ask := exp.States["Ask"]
	ask.Content = []domain.ContentBlock{{Type: domain.ContentText, Value: "Capital of France?"}}
	ask.Widget.Handlers[0].RuleSpecs = []domain.RuleSpec{
		{Name: "Equals", Description: "is equal to {{x|UnicodeString}}", Inputs: map[string]any{"x": "Paris"}, Condition: "answer == inputs.x", Dest: "Done", Feedback: []string{"Yes!"}},
		{Name: domain.DefaultRuleName, Dest: "Ask", Feedback: []string{"No."}},
	}
	done := domain.NewState("Done")
	done.Widget.WidgetID = widget.EndExploration
	done.Widget.Handlers = []domain.Handler{}
	exp.States["Done"] = done
	return exp
}

type fixture struct {
	server  *Server
	handler http.Handler
	store   *memory.Store
	answers *memory.AnswerLog
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(quiz())
	answers := memory.NewAnswerLog()
	m := metrics.New()
	srv := NewServer(
		player.NewEngine(store, player.WithAnswerLog(answers), player.WithLifecycleHooks(m.Hooks())),
		editor.NewService(store, editor.WithArgValidator(widget.DefaultRegistry()), editor.WithLifecycleHooks(m.Hooks())),
		WithAnswerLog(answers),
		WithMetrics(m),
	)
	return &fixture{server: srv, handler: srv.Handler(), store: store, answers: answers, metrics: m}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *fixture) submit(t *testing.T, id, state string, sub domain.Submission) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(sub)
	require.NoError(t, err)
	form := url.Values{"payload": {string(payload)}}
	return f.do(t, http.MethodPost, "/learn/"+id+"/"+url.PathEscape(state), []byte(form.Encode()), "application/x-www-form-urlencoded")
}

func TestLearnerRoutes_RawPayload(t *testing.T) {
	f := newFixture(t)

	form := url.Values{"payload": {`{"answer":"Lyon","blockNumber":3,"channel":"submit","params":{}}`}}
	w := f.do(t, http.MethodPost, "/learn/quiz/Ask", []byte(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4.0, body["blockNumber"])
	assert.Equal(t, "Ask", body["stateId"])
	assert.Contains(t, body, "interactiveWidgetHtml")
	assert.NotContains(t, body, "block_number")
}

func TestLearnerRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/learn/quiz/data", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page domain.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "Ask", page.StateID)
	assert.Contains(t, page.HTML, "Capital of France?")

	w = f.submit(t, "quiz", "Ask", domain.Submission{Answer: "Lyon"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "Ask", page.StateID)
	assert.Contains(t, page.HTML, "No.")

	w = f.submit(t, "quiz", "Ask", domain.Submission{Answer: "Paris", BlockNumber: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "Done", page.StateID)
	assert.Equal(t, 2, page.BlockNumber)
	assert.Contains(t, page.HTML, "Yes!")

	answers, err := f.answers.Answers(context.Background(), "quiz", "Ask")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lyon", "Paris"}, answers)
}

func TestLearnerRoutes_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		do   func() *httptest.ResponseRecorder
		want int
	}{
		{"Unknown Exploration", func() *httptest.ResponseRecorder {
			return f.do(t, http.MethodGet, "/learn/nope/data", nil, "")
		}, http.StatusNotFound},
		{"Missing Payload", func() *httptest.ResponseRecorder {
			return f.do(t, http.MethodPost, "/learn/quiz/Ask", nil, "application/x-www-form-urlencoded")
		}, http.StatusBadRequest},
		{"Malformed Payload", func() *httptest.ResponseRecorder {
			return f.do(t, http.MethodPost, "/learn/quiz/Ask", []byte("payload=%7Bnot-json"), "application/x-www-form-urlencoded")
		}, http.StatusBadRequest},
		{"Unknown State", func() *httptest.ResponseRecorder {
			return f.submit(t, "quiz", "Elsewhere", domain.Submission{Answer: "x"})
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.do()
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGetWidget(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/widgets/interactive/TextInput", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp widget.DescriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Widget)
	assert.Equal(t, widget.TextInput, resp.Widget.ID)
	_, ok := resp.Widget.Param("placeholder")
	assert.True(t, ok)

	w = f.do(t, http.MethodPost, "/widgets/interactive/Nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoteSourceAgainstServer(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	src := widget.NewRemoteSource(ts.URL, ts.Client())
	def, err := src.Definition(context.Background(), widget.MultipleChoiceInput)
	require.NoError(t, err)
	assert.Error(t, def.ValidateArgs(map[string]any{"choices": []any{}}))
	assert.NoError(t, def.ValidateArgs(map[string]any{"choices": []any{"a"}}))
}

func commitBody(t *testing.T, version int, changes ...domain.Change) []byte {
	t.Helper()
	b, err := json.Marshal(CommitRequest{Version: version, ChangeList: changes, CommitMessage: "test"})
	require.NoError(t, err)
	return b
}

func TestEditorRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/createhandler/data/quiz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var exp domain.Exploration
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exp))
	assert.Equal(t, 1, exp.Version)

	t.Run("Commit", func(t *testing.T) {
		body := commitBody(t, 1, domain.Change{Property: domain.PropertyStateName, StateName: "Done", OldValue: "Done", NewValue: "Finished"})
		w := f.do(t, http.MethodPut, "/createhandler/data/quiz", body, "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var after domain.Exploration
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
		assert.Equal(t, 2, after.Version)
		assert.Contains(t, after.States, "Finished")
		assert.Equal(t, "Finished", after.States["Ask"].Widget.Handlers[0].RuleSpecs[0].Dest)
	})

	t.Run("Stale Version Conflicts", func(t *testing.T) {
		body := commitBody(t, 1, domain.Change{Property: domain.PropertyTitle, NewValue: "Late"})
		w := f.do(t, http.MethodPut, "/createhandler/data/quiz", body, "application/json")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Invalid Change", func(t *testing.T) {
		body := commitBody(t, 2, domain.Change{Property: domain.PropertyStateName, StateName: "Finished", NewValue: "Ask"})
		w := f.do(t, http.MethodPut, "/createhandler/data/quiz", body, "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Invalid Args", func(t *testing.T) {
		body := commitBody(t, 2, domain.Change{Property: domain.PropertyWidgetCustomizationArgs, StateName: "Ask", NewValue: map[string]any{"bogus": 1}})
		w := f.do(t, http.MethodPut, "/createhandler/data/quiz", body, "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/createhandler/data/quiz", []byte("{"), "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Incoming States", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/createhandler/incoming/quiz/Finished", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		var incoming map[string][]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &incoming))
		assert.Equal(t, map[string][]string{"Ask": {`Answer is equal to "Paris"`}}, incoming)

		w = f.do(t, http.MethodGet, "/createhandler/incoming/quiz/Nope", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commits.WithLabelValues("quiz")))
}

func TestStatsRoute(t *testing.T) {
	f := newFixture(t)
	for _, a := range []string{"Lyon", "Paris", "Lyon"} {
		w := f.submit(t, "quiz", "Ask", domain.Submission{Answer: a})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, http.MethodGet, "/createhandler/stats/quiz/Ask", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result stats.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, stats.AnswerFrequencies, result.CalculationID)
	assert.Equal(t, []stats.Frequency{{Answer: "Lyon", Frequency: 2}, {Answer: "Paris", Frequency: 1}}, result.Output)

	w = f.do(t, http.MethodGet, "/createhandler/stats/quiz/Ask?calculation=Top5AnswerFrequencies", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/createhandler/stats/quiz/Ask?calculation=Median", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInfoHealthAndSpec(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/info", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "lessonkit-http", info["app"])
	assert.NotEqual(t, "unknown", info["api_version"])

	swagger, err := GetSwagger()
	require.NoError(t, err)
	require.NoError(t, swagger.Validate(context.Background()))
	assert.NotNil(t, swagger.Paths.Find("/learn/{explorationId}/data"))

	w = f.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lessonkit_http_requests_total")
}

func TestSubscribeEvents_Exploration(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?exploration_id=quiz", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	body := commitBody(t, 1, domain.Change{Property: domain.PropertyTitle, NewValue: "Streamed"})
	put, err := http.NewRequest(http.MethodPut, ts.URL+"/createhandler/data/quiz", bytes.NewReader(body))
	require.NoError(t, err)
	putResp, err := ts.Client().Do(put)
	require.NoError(t, err)
	putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	var diff domain.ExplorationDiff
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &diff))
	assert.Equal(t, "quiz", diff.ExplorationID)
	require.NotNil(t, diff.Title)
	assert.Equal(t, "Streamed", *diff.Title)
}

type fakeWatcher struct{ events []string }

func (w fakeWatcher) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, len(w.events))
	for _, e := range w.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func TestSubscribeEvents_SourceChanges(t *testing.T) {
	store := memory.NewStore(quiz())
	handler := NewHandler(player.NewEngine(store), editor.NewService(store), WithWatcher(fakeWatcher{events: []string{"quiz"}}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: ping")
	assert.Contains(t, w.Body.String(), "data: quiz")
}

func TestSubscribeEvents_RequiresExplorationWithoutWatcher(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/events", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("exp")
	sm.Broadcast("exp", "one")
	assert.Equal(t, "one", <-ch)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Empty(t, sm.subscribers)

	sm.Broadcast("exp", "nobody listens")
}
