package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lessonkit/internal/config"
	"github.com/aretw0/lessonkit/internal/metrics"
	httpAdapter "github.com/aretw0/lessonkit/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/lessonkit/pkg/adapters/mcp"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/editor"
	"github.com/aretw0/lessonkit/pkg/player"
	"github.com/aretw0/lessonkit/pkg/widget"
	"golang.org/x/sync/errgroup"
)

// Services are the player and editor wired over a backend.
type Services struct {
	Player  *player.Engine
	Editor  *editor.Service
	Widgets *widget.Registry
	// Metrics is nil when disabled in the config.
	Metrics *metrics.Metrics
}

// NewServices wires the player and the editor commit service over b.
func NewServices(b *Backend, cfg config.Config, logger *slog.Logger) *Services {
	s := &Services{Widgets: widget.DefaultRegistry()}

	var hooks domain.LifecycleHooks
	if cfg.Metrics {
		s.Metrics = metrics.New()
		hooks = s.Metrics.Hooks()
	}

	editorOpts := []editor.Option{
		editor.WithArgValidator(s.Widgets),
		editor.WithLockTTL(cfg.LockTTL),
		editor.WithLifecycleHooks(hooks),
		editor.WithLogger(logger),
	}
	if b.Locker != nil {
		editorOpts = append(editorOpts, editor.WithLocker(b.Locker))
	}
	s.Editor = editor.NewService(b.Store, editorOpts...)

	s.Player = player.NewEngine(b.Store,
		player.WithWidgets(s.Widgets),
		player.WithAnswerLog(b.Answers),
		player.WithLifecycleHooks(hooks),
		player.WithLogger(logger),
	)
	return s
}

// NewMCPServer exposes the services as MCP tools.
func (s *Services) NewMCPServer(logger *slog.Logger) *mcpAdapter.Server {
	return mcpAdapter.NewServer(s.Player, s.Editor,
		mcpAdapter.WithArgValidator(s.Widgets),
		mcpAdapter.WithLogger(logger),
	)
}

// Serve runs the HTTP server until ctx is done. With cfg.Watch, markdown
// changes are re-imported and announced on /events.
func Serve(ctx context.Context, b *Backend, cfg config.Config, out io.Writer, logger *slog.Logger) error {
	services := NewServices(b, cfg, logger)

	opts := []httpAdapter.Option{
		httpAdapter.WithWidgets(services.Widgets),
		httpAdapter.WithAnswerLog(b.Answers),
		httpAdapter.WithLogger(logger),
	}
	if services.Metrics != nil {
		opts = append(opts, httpAdapter.WithMetrics(services.Metrics))
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Watch {
		reloads, err := b.Follow(gctx)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
		}
		hub := NewHub()
		opts = append(opts, httpAdapter.WithWatcher(hub))
		g.Go(func() error {
			hub.Pipe(reloads)
			return nil
		})
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpAdapter.NewHandler(services.Player, services.Editor, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		printSystemMessage(out, "Serving explorations from '%s' on %s (store: %s)", cfg.Dir, cfg.Addr, cfg.Store)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		logger.Info("Server stopped gracefully")
		return nil
	})
	return g.Wait()
}
