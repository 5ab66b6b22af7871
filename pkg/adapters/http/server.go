package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/lessonkit"
	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/internal/metrics"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/editor"
	"github.com/aretw0/lessonkit/pkg/graph"
	"github.com/aretw0/lessonkit/pkg/player"
	"github.com/aretw0/lessonkit/pkg/ports"
	"github.com/aretw0/lessonkit/pkg/stats"
	"github.com/aretw0/lessonkit/pkg/widget"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

// GetSwagger parses the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	return openapi3.NewLoader().LoadFromData(rawSpec)
}

// Server serves the reader, widget and editor routes.
type Server struct {
	Player  *player.Engine
	Editor  *editor.Service
	Widgets widget.Source
	Answers ports.AnswerLog
	Watcher ports.Watchable
	Streams *StreamManager
	Metrics *metrics.Metrics

	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithWidgets sets the widget definitions served on /widgets/interactive.
func WithWidgets(src widget.Source) Option {
	return func(s *Server) {
		s.Widgets = src
	}
}

// WithAnswerLog enables the stats route.
func WithAnswerLog(log ports.AnswerLog) Option {
	return func(s *Server) {
		s.Answers = log
	}
}

// WithWatcher streams source changes on /events when no exploration is given.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.Watcher = w
	}
}

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server over a player and an editor service.
func NewServer(p *player.Engine, e *editor.Service, opts ...Option) *Server {
	s := &Server{
		Player:  p,
		Editor:  e,
		Widgets: widget.DefaultRegistry(),
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler serving all routes.
func NewHandler(p *player.Engine, e *editor.Service, opts ...Option) http.Handler {
	return NewServer(p, e, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/learn/{explorationId}", func(r chi.Router) {
		r.Get("/data", s.GetLearnerData)
		r.Post("/{stateId}", s.SubmitAnswer)
	})
	r.Post("/widgets/interactive/{widgetId}", s.GetWidget)

	r.Route("/createhandler", func(r chi.Router) {
		r.Get("/data/{explorationId}", s.GetEditorData)
		r.Put("/data/{explorationId}", s.CommitChangeList)
		r.Get("/incoming/{explorationId}/{stateName}", s.GetIncomingStates)
		r.Get("/stats/{explorationId}/{stateName}", s.GetStateStats)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Lessonkit API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// CommitRequest is the body of PUT /createhandler/data/{explorationId}.
type CommitRequest struct {
	Version       int             `json:"version"`
	CommitMessage string          `json:"commit_message,omitempty"`
	ChangeList    []domain.Change `json:"change_list"`
}

// GetLearnerData handles GET /learn/{explorationId}/data.
func (s *Server) GetLearnerData(w http.ResponseWriter, r *http.Request) {
	var id string
	if !s.bindPath(w, r, "explorationId", &id) {
		return
	}
	page, err := s.Player.Start(r.Context(), id)
	if err != nil {
		s.writeError(w, "GetLearnerData", err)
		return
	}
	s.writeJSON(w, "GetLearnerData", page)
}

// SubmitAnswer handles POST /learn/{explorationId}/{stateId}. The
// submission arrives JSON encoded in the form field "payload".
func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var id, stateID string
	if !s.bindPath(w, r, "explorationId", &id) || !s.bindPath(w, r, "stateId", &stateID) {
		return
	}

	raw := r.FormValue("payload")
	if raw == "" {
		s.writeError(w, "SubmitAnswer", fmt.Errorf("%w: missing payload", errBadRequest))
		return
	}
	var sub domain.Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		s.writeError(w, "SubmitAnswer", fmt.Errorf("%w: invalid payload: %v", errBadRequest, err))
		return
	}

	page, err := s.Player.Submit(r.Context(), id, stateID, sub)
	if err != nil {
		s.writeError(w, "SubmitAnswer", err)
		return
	}
	s.writeJSON(w, "SubmitAnswer", page)
}

// GetWidget handles POST /widgets/interactive/{widgetId}.
func (s *Server) GetWidget(w http.ResponseWriter, r *http.Request) {
	var id string
	if !s.bindPath(w, r, "widgetId", &id) {
		return
	}
	def, err := s.Widgets.Definition(r.Context(), id)
	if err != nil {
		s.writeError(w, "GetWidget", err)
		return
	}
	s.writeJSON(w, "GetWidget", widget.DescriptionResponse{Widget: def})
}

// GetEditorData handles GET /createhandler/data/{explorationId}.
func (s *Server) GetEditorData(w http.ResponseWriter, r *http.Request) {
	var id string
	if !s.bindPath(w, r, "explorationId", &id) {
		return
	}
	exp, err := s.Editor.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, "GetEditorData", err)
		return
	}
	s.writeJSON(w, "GetEditorData", exp)
}

// CommitChangeList handles PUT /createhandler/data/{explorationId} and
// broadcasts the resulting diff to subscribers of the exploration.
func (s *Server) CommitChangeList(w http.ResponseWriter, r *http.Request) {
	var id string
	if !s.bindPath(w, r, "explorationId", &id) {
		return
	}
	var body CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, "CommitChangeList", fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return
	}

	before, after, err := s.Editor.CommitWithBase(r.Context(), id, body.Version, body.ChangeList, body.CommitMessage)
	if err != nil {
		s.writeError(w, "CommitChangeList", err)
		return
	}

	if diff := domain.Diff(before, after); diff != nil {
		s.logger.Debug("CommitChangeList: Diff calculated", "diff", diff, "exploration_id", id)
		if bytes, err := json.Marshal(diff); err == nil {
			s.Streams.Broadcast(id, string(bytes))
		}
	}
	s.writeJSON(w, "CommitChangeList", after)
}

// GetIncomingStates handles GET /createhandler/incoming/{explorationId}/{stateName}.
func (s *Server) GetIncomingStates(w http.ResponseWriter, r *http.Request) {
	var id, name string
	if !s.bindPath(w, r, "explorationId", &id) || !s.bindPath(w, r, "stateName", &name) {
		return
	}
	exp, err := s.Editor.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, "GetIncomingStates", err)
		return
	}
	if _, ok := exp.States[name]; !ok {
		s.writeError(w, "GetIncomingStates", fmt.Errorf("%w: %s", domain.ErrStateNotFound, name))
		return
	}

	resp := make(map[string][]string)
	for source, in := range graph.New(exp).GetIncomingStates(name) {
		resp[source] = in.Rules
	}
	s.writeJSON(w, "GetIncomingStates", resp)
}

// GetStateStats handles GET /createhandler/stats/{explorationId}/{stateName}.
func (s *Server) GetStateStats(w http.ResponseWriter, r *http.Request) {
	var id, name string
	if !s.bindPath(w, r, "explorationId", &id) || !s.bindPath(w, r, "stateName", &name) {
		return
	}
	calculation := stats.AnswerFrequencies
	if err := runtime.BindQueryParameter("form", true, false, "calculation", r.URL.Query(), &calculation); err != nil {
		s.writeError(w, "GetStateStats", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if s.Answers == nil {
		s.writeError(w, "GetStateStats", errors.New("answer statistics are not enabled"))
		return
	}

	result, err := stats.Calculate(r.Context(), s.Answers, id, name, calculation)
	if err != nil {
		s.writeError(w, "GetStateStats", err)
		return
	}
	s.writeJSON(w, "GetStateStats", result)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetHealth", map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	s.writeJSON(w, "GetInfo", map[string]string{
		"app":         "lessonkit-http",
		"version":     strings.TrimSpace(lessonkit.Version),
		"api_version": apiVersion,
	})
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // ExplorationID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(explorationID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[explorationID]; !ok {
		sm.subscribers[explorationID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[explorationID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[explorationID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, explorationID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(explorationID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("StreamManager: Broadcasting", "exploration_id", explorationID, "payload_size", len(msg))
	for ch := range sm.subscribers[explorationID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "exploration_id", explorationID)
		}
	}
}

// SubscribeEvents handles the GET /events request (SSE). With an
// exploration_id it streams commit diffs of that exploration, otherwise the
// IDs of explorations whose source changed.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	var explorationID *string
	if err := runtime.BindQueryParameter("form", true, false, "exploration_id", r.URL.Query(), &explorationID); err != nil {
		s.writeError(w, "SubscribeEvents", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var events <-chan string
	if explorationID == nil {
		if s.Watcher == nil {
			s.writeError(w, "SubscribeEvents", fmt.Errorf("%w: exploration_id is required", errBadRequest))
			return
		}
		watch, err := s.Watcher.Watch(r.Context())
		if err != nil {
			s.writeError(w, "SubscribeEvents", fmt.Errorf("watch error: %w", err))
			return
		}
		s.logger.Info("SSE: Subscribing to source changes")
		events = watch
	} else {
		ch, cancel := s.Streams.Subscribe(*explorationID)
		defer cancel()
		s.logger.Info("SSE: Subscribing to exploration updates", "exploration_id", *explorationID)
		events = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	streamEvents(r.Context(), w, flusher, events)
}

func streamEvents(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

var errBadRequest = errors.New("bad request")

func (s *Server) bindPath(w http.ResponseWriter, r *http.Request, name string, dest *string) bool {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.writeError(w, "bindPath", fmt.Errorf("%w: invalid %s: %v", errBadRequest, name, err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrExplorationNotFound),
		errors.Is(err, domain.ErrStateNotFound) && !errors.Is(err, domain.ErrInvalidChange),
		errors.Is(err, widget.ErrUnknownWidget):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidChange),
		errors.Is(err, domain.ErrInvalidStateName),
		errors.Is(err, domain.ErrStateNameTooLong),
		errors.Is(err, domain.ErrDuplicateStateName),
		errors.Is(err, domain.ErrDeleteInitState),
		errors.Is(err, stats.ErrUnknownCalculation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+": request rejected", "status", status, "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, op string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(op+" response encode failed", "err", err)
	}
}
