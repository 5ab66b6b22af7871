package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/pkg/changelist"
	"github.com/aretw0/lessonkit/pkg/dialog"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/graph"
	"github.com/aretw0/lessonkit/pkg/notify"
	"github.com/aretw0/lessonkit/pkg/ports"
)

// Session is one open editor: the graph being edited, the log of edits since
// the last save and the endpoint they are saved to.
type Session struct {
	graph    *graph.Store
	recorder *changelist.Recorder
	saver    ports.ChangeSaver
	notifier ports.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	id      string
	version int
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	notifier  ports.Notifier
	validator graph.ArgValidator
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// WithNotifier sets where warnings of the graph and the recorder go.
func WithNotifier(n ports.Notifier) SessionOption {
	return func(c *sessionConfig) {
		c.notifier = n
	}
}

// WithValidator validates widget customization args as they are edited.
func WithValidator(v graph.ArgValidator) SessionOption {
	return func(c *sessionConfig) {
		c.validator = v
	}
}

// WithSessionLogger sets the structured logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithSessionHooks registers observability callbacks on the recorder.
func WithSessionHooks(hooks domain.LifecycleHooks) SessionOption {
	return func(c *sessionConfig) {
		c.hooks = hooks
	}
}

// NewSession opens exp for editing. Saves go to saver.
func NewSession(exp *domain.Exploration, saver ports.ChangeSaver, opts ...SessionOption) *Session {
	cfg := sessionConfig{
		notifier: notify.Discard,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rec := changelist.New(exp.ID,
		changelist.WithNotifier(cfg.notifier),
		changelist.WithLogger(cfg.logger),
		changelist.WithLifecycleHooks(cfg.hooks),
	)
	gopts := []graph.Option{
		graph.WithRecorder(rec),
		graph.WithNotifier(cfg.notifier),
		graph.WithLogger(cfg.logger),
	}
	if cfg.validator != nil {
		gopts = append(gopts, graph.WithArgValidator(cfg.validator))
	}

	return &Session{
		graph:    graph.New(exp, gopts...),
		recorder: rec,
		saver:    saver,
		notifier: cfg.notifier,
		logger:   cfg.logger,
		id:       exp.ID,
		version:  exp.Version,
	}
}

// Open loads the exploration from loader and opens it for editing.
func Open(ctx context.Context, loader ports.ExplorationLoader, id string, saver ports.ChangeSaver, opts ...SessionOption) (*Session, error) {
	exp, err := loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewSession(exp, saver, opts...), nil
}

// Graph returns the state graph being edited.
func (s *Session) Graph() *graph.Store { return s.graph }

// Recorder returns the change log.
func (s *Session) Recorder() *changelist.Recorder { return s.recorder }

// Version returns the version the pending changes apply on top of.
func (s *Session) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool {
	return len(s.recorder.Net()) > 0
}

// Save asks for a commit message through prompt and saves the change list.
// A cancelled prompt saves nothing and reports saved=false.
func (s *Session) Save(ctx context.Context, prompt dialog.Prompt[string]) (saved bool, err error) {
	if s.recorder.Len() == 0 {
		return false, domain.ErrNothingToSave
	}

	outcome, err := dialog.Await(ctx, prompt)
	if err != nil {
		return false, err
	}
	message, ok := outcome.Payload()
	if !ok {
		s.logger.Debug("Save cancelled", "exploration_id", s.id)
		return false, nil
	}

	version, err := s.recorder.Save(ctx, s.saver, s.Version(), strings.TrimSpace(message))
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.version = version
	s.mu.Unlock()
	return true, nil
}

// Describe summarises the pending changes, one line per net change.
func (s *Session) Describe() []string {
	net := s.recorder.Net()
	lines := make([]string, 0, len(net))
	for _, c := range net {
		switch {
		case c.Property == domain.PropertyStateName:
			lines = append(lines, fmt.Sprintf("renamed state %v to %v", c.OldValue, c.NewValue))
		case c.Property == domain.PropertyAddState:
			lines = append(lines, fmt.Sprintf("added state %s", c.StateName))
		case c.Property == domain.PropertyDeleteState:
			lines = append(lines, fmt.Sprintf("deleted state %s", c.StateName))
		case c.StateName != "":
			lines = append(lines, fmt.Sprintf("changed %s of %s", c.Property, c.StateName))
		default:
			lines = append(lines, fmt.Sprintf("changed %s", c.Property))
		}
	}
	return lines
}
