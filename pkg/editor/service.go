package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/graph"
	"github.com/aretw0/lessonkit/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed commit lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Service is the save endpoint: it replays change lists on top of the stored
// snapshot and persists the result under the next version.
// Commits to one exploration are serialised; unused locks are reference
// counted away.
type Service struct {
	store ports.ExplorationStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	validator graph.ArgValidator
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.lockTTL = ttl
	}
}

// WithArgValidator validates widget customization args during replay.
func WithArgValidator(v graph.ArgValidator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a commit service over store.
func NewService(store ports.ExplorationStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying exploration store.
func (s *Service) Store() ports.ExplorationStore {
	return s.store
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (s *Service) acquire(id string) *lockEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.locks[id]
	if !exists {
		entry = &lockEntry{}
		s.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.locks, id)
	}
}

// WithLock executes fn while holding the commit lock for the exploration.
func (s *Service) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := s.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		s.release(id)
	}()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "commit:"+id, s.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				s.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"exploration_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load returns the stored snapshot.
func (s *Service) Load(ctx context.Context, id string) (*domain.Exploration, error) {
	return s.store.Load(ctx, id)
}

// Create stores a new exploration. It fails if the ID is taken.
func (s *Service) Create(ctx context.Context, exp *domain.Exploration) error {
	return s.WithLock(ctx, exp.ID, func(ctx context.Context) error {
		if _, err := s.store.Load(ctx, exp.ID); err == nil {
			return fmt.Errorf("%w: exploration %s already exists", domain.ErrVersionConflict, exp.ID)
		}
		if err := graph.Check(exp); err != nil {
			return err
		}
		return s.store.Save(ctx, exp)
	})
}

// Commit applies changes on top of version and persists the result as
// version+1. A version other than the stored one fails with
// domain.ErrVersionConflict and a change that cannot be applied, or that
// leaves the graph invalid, fails with domain.ErrInvalidChange. Nothing is
// persisted on failure.
func (s *Service) Commit(ctx context.Context, id string, version int, changes []domain.Change, message string) (*domain.Exploration, error) {
	_, saved, err := s.CommitWithBase(ctx, id, version, changes, message)
	return saved, err
}

// CommitWithBase is Commit that also returns the snapshot the changes were
// applied to, as loaded under the commit lock.
func (s *Service) CommitWithBase(ctx context.Context, id string, version int, changes []domain.Change, message string) (base, saved *domain.Exploration, err error) {
	err = s.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := s.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if current.Version != version {
			return fmt.Errorf("%w: exploration %s is at version %d, change list targets %d",
				domain.ErrVersionConflict, id, current.Version, version)
		}

		g := graph.New(current)
		for i, c := range changes {
			if err := g.Apply(c); err != nil {
				return fmt.Errorf("%w: change %d (%s): %w", domain.ErrInvalidChange, i, c.Property, err)
			}
		}
		if err := g.Validate(); err != nil {
			return err
		}

		next := g.Snapshot()
		if err := s.validateArgs(next); err != nil {
			return err
		}
		next.Version = version + 1
		if err := s.store.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to persist exploration: %w", err)
		}
		base, saved = current, next
		return nil
	})
	if err != nil {
		s.logger.Warn("Commit rejected", "exploration_id", id, "version", version, "err", err)
		return nil, nil, err
	}

	commitID := uuid.NewString()
	s.logger.Info("Change list committed",
		"commit_id", commitID,
		"exploration_id", id,
		"version", saved.Version,
		"changes", len(changes),
	)
	if s.hooks.OnCommitted != nil {
		s.hooks.OnCommitted(ctx, &domain.CommitEvent{
			EventBase: domain.EventBase{
				Timestamp:     time.Now(),
				Type:          domain.EventCommitted,
				ExplorationID: id,
			},
			CommitID: commitID,
			Version:  saved.Version,
			Changes:  len(changes),
			Message:  message,
		})
	}
	return base, saved, nil
}

func (s *Service) validateArgs(exp *domain.Exploration) error {
	if s.validator == nil {
		return nil
	}
	for _, name := range exp.StateNames() {
		w := exp.States[name].Widget
		if err := s.validator.ValidateArgs(w.WidgetID, w.CustomizationArgs); err != nil {
			return fmt.Errorf("%w: state %s: %w", domain.ErrInvalidChange, name, err)
		}
	}
	return nil
}

// SaveChanges implements ports.ChangeSaver.
func (s *Service) SaveChanges(ctx context.Context, id string, version int, changes []domain.Change, message string) (int, error) {
	exp, err := s.Commit(ctx, id, version, changes, message)
	if err != nil {
		return 0, err
	}
	return exp.Version, nil
}
