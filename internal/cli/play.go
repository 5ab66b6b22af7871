package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/lessonkit"
	"github.com/aretw0/lessonkit/internal/presentation/tui"
	"github.com/aretw0/lessonkit/pkg/domain"
	"golang.org/x/term"
)

var errInterrupted = errors.New("interrupted")

// PlayOptions configures the play command.
type PlayOptions struct {
	ExplorationID string
	Headless      bool
	Debug         bool
	Input         io.Reader
	Output        io.Writer
}

// Play runs an exploration from the backend store in the terminal.
func Play(ctx context.Context, b *Backend, opts PlayOptions, logger *slog.Logger) error {
	if opts.Input == nil || opts.Output == nil {
		return errors.New("play needs an input and an output")
	}
	id, err := pickExploration(ctx, b, opts.ExplorationID)
	if err != nil {
		return err
	}

	engineOpts := []lessonkit.Option{
		lessonkit.WithLoader(b.Store),
		lessonkit.WithAnswerLog(b.Answers),
		lessonkit.WithLogger(logger),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, lessonkit.WithLifecycleHooks(createDebugHooks(logger)))
	}
	engine, err := lessonkit.New("", engineOpts...)
	if err != nil {
		return fmt.Errorf("error initializing engine: %w", err)
	}

	r := lessonkit.NewRunner()
	r.Input = NewInterruptibleReader(opts.Input, ctx.Done())
	r.Output = opts.Output
	r.Headless = opts.Headless
	if !opts.Headless && isTerminal(opts.Output) {
		tui.PrintBanner(opts.Output)
		r.Renderer = tui.NewRenderer()
	}

	logger.Info("Playing exploration", "exploration_id", id)
	return handleExecutionError(r.Run(ctx, engine, id))
}

// pickExploration returns id, or the only exploration when id is empty.
func pickExploration(ctx context.Context, b *Backend, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	ids, err := b.Store.List(ctx)
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no explorations found")
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("several explorations found, pick one of: %s", strings.Join(ids, ", "))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAnswerSubmitted: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.Debug("Answer classified", "state", e.StateName, "rule", e.Rule, "dest", e.Dest)
		},
	}
}

// InterruptibleReader wraps an io.Reader (like os.Stdin) and checks for a cancellation signal.
type InterruptibleReader struct {
	base   io.Reader
	cancel <-chan struct{}
}

func NewInterruptibleReader(base io.Reader, cancel <-chan struct{}) *InterruptibleReader {
	return &InterruptibleReader{
		base:   base,
		cancel: cancel,
	}
}

func (r *InterruptibleReader) Read(p []byte) (n int, err error) {
	select {
	case <-r.cancel:
		return 0, errInterrupted
	default:
	}

	// Read (This blocks!)
	n, err = r.base.Read(p)

	select {
	case <-r.cancel:
		return 0, errInterrupted
	default:
	}
	return n, err
}

func handleExecutionError(err error) error {
	if errors.Is(err, errInterrupted) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
