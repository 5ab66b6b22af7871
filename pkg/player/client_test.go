package player_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aretw0/lessonkit/pkg/adapters/memory"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/frame"
	"github.com/aretw0/lessonkit/pkg/notify"
	"github.com/aretw0/lessonkit/pkg/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readerServer serves the reader routes straight from an Engine.
func readerServer(t *testing.T, engine *player.Engine, failures *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /learn/{id}/data", func(w http.ResponseWriter, r *http.Request) {
		page, err := engine.Start(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("POST /learn/{id}/{stateId}", func(w http.ResponseWriter, r *http.Request) {
		if failures != nil && failures.Load() > 0 {
			failures.Add(-1)
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		var sub domain.Submission
		if err := json.Unmarshal([]byte(r.FormValue("payload")), &sub); err != nil {
			http.Error(w, `{"error":"bad payload"}`, http.StatusBadRequest)
			return
		}
		page, err := engine.Submit(r.Context(), r.PathValue("id"), r.PathValue("stateId"), sub)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_PlayThrough(t *testing.T) {
	ctx := context.Background()
	srv := readerServer(t, player.NewEngine(memory.NewStore(arithmetic())), nil)
	client := player.NewClient(srv.URL, "arith")

	_, err := client.Submit(ctx, "4")
	assert.ErrorIs(t, err, domain.ErrStateNotFound, "submitting before Start")

	page, err := client.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Question", page.StateID)
	assert.EqualValues(t, 2, page.Params["n"])

	page, err = client.Submit(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Right", page.StateID)
	assert.Equal(t, 1, page.BlockNumber)
	assert.Same(t, page, client.Page())

	page, err = client.Submit(ctx, "")
	require.NoError(t, err)
	assert.True(t, page.Finished)

	_, err = client.Submit(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidChange)
}

func TestClient_NotFound(t *testing.T) {
	srv := readerServer(t, player.NewEngine(memory.NewStore()), nil)
	_, err := player.NewClient(srv.URL, "missing").Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrExplorationNotFound)
}

func TestClient_FailedSubmissionResetsPending(t *testing.T) {
	ctx := context.Background()
	var failures atomic.Int32
	failures.Store(1)
	warnings := notify.NewWarningList(0)
	srv := readerServer(t, player.NewEngine(memory.NewStore(arithmetic())), &failures)
	client := player.NewClient(srv.URL, "arith", player.WithNotifier(warnings))

	_, err := client.Start(ctx)
	require.NoError(t, err)

	_, err = client.Submit(ctx, "4")
	require.Error(t, err)
	assert.False(t, client.Pending())
	require.Len(t, warnings.Warnings(), 1)
	assert.Contains(t, warnings.Warnings()[0], "Error submitting answer")
	assert.Equal(t, "Question", client.Page().StateID, "page is unchanged after a failure")

	page, err := client.Submit(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "Right", page.StateID)
}

func TestClient_RejectsConcurrentSubmission(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{})
	engine := player.NewEngine(memory.NewStore(arithmetic()))
	inner := readerServer(t, engine, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			close(entered)
			<-release
		}
		proxy, err := http.NewRequestWithContext(r.Context(), r.Method, inner.URL+r.URL.Path, r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		proxy.Header = r.Header
		resp, err := http.DefaultClient.Do(proxy)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		var page domain.Page
		_ = json.NewDecoder(resp.Body).Decode(&page)
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := player.NewClient(srv.URL, "arith")
	_, err := client.Start(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := client.Submit(ctx, "4")
		done <- err
	}()

	<-entered
	assert.True(t, client.Pending())
	_, err = client.Submit(ctx, "4")
	assert.True(t, errors.Is(err, domain.ErrSubmissionPending))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, client.Pending())
}

func TestClient_FrameBridge(t *testing.T) {
	ctx := context.Background()
	srv := readerServer(t, player.NewEngine(memory.NewStore(arithmetic())), nil)
	client := player.NewClient(srv.URL, "arith")
	_, err := client.Start(ctx)
	require.NoError(t, err)

	bridge, err := frame.NewBridge("http://reader.test", client.SubmitFunc())
	require.NoError(t, err)

	acted, err := bridge.Receive(ctx, frame.Event{Origin: "http://evil.test", Data: []byte(`{"submit":"4"}`)})
	require.NoError(t, err)
	assert.False(t, acted)
	assert.Equal(t, "Question", client.Page().StateID)

	acted, err = bridge.Receive(ctx, frame.Event{Origin: "http://reader.test:80", Data: []byte(`{"submit":"4"}`)})
	require.NoError(t, err)
	assert.True(t, acted)
	assert.Equal(t, "Right", client.Page().StateID)
}
