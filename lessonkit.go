package lessonkit

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/lessonkit/internal/logging"
	loamAdapter "github.com/aretw0/lessonkit/pkg/adapters/loam"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/player"
	"github.com/aretw0/lessonkit/pkg/ports"
	"github.com/aretw0/loam"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// Engine is the high-level entry point for playing explorations.
// It wraps a player.Engine over a loader.
type Engine struct {
	player  *player.Engine
	loader  ports.ExplorationLoader
	answers ports.AnswerLog
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	Name    string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom loader, bypassing the default Loam initialization.
func WithLoader(l ports.ExplorationLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithAnswerLog records classified answers.
func WithAnswerLog(log ports.AnswerLog) Option {
	return func(e *Engine) {
		e.answers = log
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine.
// By default it reads explorations from a Loam repository at repoPath.
// If WithLoader is provided, repoPath can be empty and Loam is skipped.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if repoPath == "" {
			return nil, fmt.Errorf("repoPath is required when no custom loader is provided")
		}
		loader, err := OpenRepository(repoPath)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	}
	if repoPath != "" {
		eng.Name = filepath.Base(repoPath)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("repo", eng.Name)
	}

	playerOpts := []player.Option{
		player.WithLogger(eng.logger),
		player.WithLifecycleHooks(eng.hooks),
	}
	if eng.answers != nil {
		playerOpts = append(playerOpts, player.WithAnswerLog(eng.answers))
	}
	eng.player = player.NewEngine(eng.loader, playerOpts...)
	return eng, nil
}

// OpenRepository opens a read-only Loam repository of markdown explorations.
func OpenRepository(repoPath string) (*loamAdapter.Loader, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numbers as json.Number across JSON and YAML
	// frontmatter. ReadOnly stops Loam from sandboxing in dev mode.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	typedRepo := loam.NewTypedRepository[loamAdapter.DocumentMetadata](repo)
	return loamAdapter.New(typedRepo), nil
}

// Start returns the first page of an exploration.
func (e *Engine) Start(ctx context.Context, explorationID string) (*domain.Page, error) {
	return e.player.Start(ctx, explorationID)
}

// Submit answers the state the learner is on and returns the next page.
func (e *Engine) Submit(ctx context.Context, explorationID, stateID string, sub domain.Submission) (*domain.Page, error) {
	return e.player.Submit(ctx, explorationID, stateID, sub)
}

// List returns the available exploration IDs.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.loader.List(ctx)
}

// Watch reports changed explorations when the loader supports it.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("loader does not support watching")
	}
	return w.Watch(ctx)
}

// Loader returns the loader the engine reads from.
func (e *Engine) Loader() ports.ExplorationLoader {
	return e.loader
}

// Player returns the underlying player engine.
func (e *Engine) Player() *player.Engine {
	return e.player
}
