package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/lessonkit"
	"github.com/aretw0/lessonkit/internal/config"
	"github.com/aretw0/lessonkit/pkg/adapters/file"
	"github.com/aretw0/lessonkit/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/lessonkit/pkg/adapters/redis"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/persistence/middleware"
	"github.com/aretw0/lessonkit/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Backend bundles the adapters a command works with.
type Backend struct {
	Store   ports.ExplorationStore
	Answers ports.AnswerLog
	// Locker is nil unless the store is shared between processes.
	Locker ports.DistributedLocker
	// Source is the markdown repository explorations are imported from.
	Source ports.ExplorationLoader

	logger *slog.Logger
	closer func() error
}

// OpenBackend builds the store selected by cfg and imports the explorations
// of cfg.Dir that it does not hold yet.
func OpenBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{logger: logger, closer: func() error { return nil }}

	switch cfg.Store {
	case config.StoreMemory:
		b.Store = memory.NewStore()
		b.Answers = memory.NewAnswerLog()
	case config.StoreFile:
		b.Store = file.New(cfg.StorePath)
		b.Answers = memory.NewAnswerLog()
	case config.StoreRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		b.Store = redisAdapter.NewFromClient(client, redisAdapter.WithPrefix(cfg.RedisPrefix))
		b.Answers = redisAdapter.NewAnswerLog(client, cfg.RedisPrefix, cfg.AnswerLimit)
		b.Locker = redisAdapter.NewLocker(client, cfg.RedisPrefix)
		b.closer = client.Close
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	answers, err := answerMiddlewares(cfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Answers = middleware.Chain(b.Answers, answers...)

	source, err := lessonkit.OpenRepository(cfg.Dir)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Source = source

	if _, err := Import(ctx, b.Source, b.Store, false); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func answerMiddlewares(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.AnswerMask) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.AnswerMask)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.AnswerKey != "" {
		key, err := middleware.ParseKey(cfg.AnswerKey)
		if err != nil {
			return nil, fmt.Errorf("answer_key: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// Close releases connections held by the backend.
func (b *Backend) Close() error {
	return b.closer()
}

// Import copies explorations from src into dst. Explorations already in dst
// are kept unless overwrite is set, in which case they are replaced and
// their version bumped so pending editor change lists become stale.
func Import(ctx context.Context, src ports.ExplorationLoader, dst ports.ExplorationStore, overwrite bool) (int, error) {
	ids, err := src.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list explorations: %w", err)
	}
	imported := 0
	for _, id := range ids {
		ok, err := importOne(ctx, src, dst, id, overwrite)
		if err != nil {
			return imported, err
		}
		if ok {
			imported++
		}
	}
	return imported, nil
}

func importOne(ctx context.Context, src ports.ExplorationLoader, dst ports.ExplorationStore, id string, overwrite bool) (bool, error) {
	current, err := dst.Load(ctx, id)
	switch {
	case err == nil && !overwrite:
		return false, nil
	case err != nil && !errors.Is(err, domain.ErrExplorationNotFound):
		return false, fmt.Errorf("failed to load %s: %w", id, err)
	}

	exp, err := src.Load(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to import %s: %w", id, err)
	}
	exp.Version = 1
	if current != nil {
		exp.Version = current.Version + 1
	}
	if err := dst.Save(ctx, exp); err != nil {
		return false, fmt.Errorf("failed to save %s: %w", id, err)
	}
	return true, nil
}

// Follow re-imports explorations whose markdown changed until ctx is done.
// The returned channel repeats the IDs of re-imported explorations.
func (b *Backend) Follow(ctx context.Context) (<-chan string, error) {
	w, ok := b.Source.(ports.Watchable)
	if !ok {
		return nil, errors.New("exploration source cannot be watched")
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		for id := range events {
			if _, err := importOne(ctx, b.Source, b.Store, id, true); err != nil {
				b.logger.Warn("Reload failed", "exploration_id", id, "err", err)
				continue
			}
			b.logger.Info("Exploration reloaded", "exploration_id", id)
			select {
			case out <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
