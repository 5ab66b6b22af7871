// Package changelist records editor changes pending save.
package changelist

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/ports"
)

// Recorder is the ordered log of edits made to one exploration since the
// last save. While a save is outstanding the recorder is locked and refuses
// new records.
type Recorder struct {
	mu            sync.Mutex
	explorationID string
	changes       []domain.Change
	locked        bool

	notifier ports.Notifier
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithNotifier sets where save failures are reported.
func WithNotifier(n ports.Notifier) Option {
	return func(r *Recorder) {
		r.notifier = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Recorder) {
		r.hooks = hooks
	}
}

// New creates an empty, unlocked Recorder.
func New(explorationID string, opts ...Option) *Recorder {
	r := &Recorder{
		explorationID: explorationID,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends c to the log and announces it.
func (r *Recorder) Record(c domain.Change) error {
	if err := r.Append(c); err != nil {
		return err
	}
	r.Announce(c)
	return nil
}

// Append adds c to the log without firing hooks.
func (r *Recorder) Append(c domain.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		return domain.ErrLockedForEditing
	}
	r.changes = append(r.changes, c)
	return nil
}

// Announce fires OnChangeRecorded for c. The Store calls it once c has been
// applied and its own lock released.
func (r *Recorder) Announce(c domain.Change) {
	if r.hooks.OnChangeRecorded == nil {
		return
	}
	evt := &domain.EditEvent{
		EventBase: domain.EventBase{
			Timestamp:     time.Now(),
			Type:          domain.EventChangeRecorded,
			ExplorationID: r.explorationID,
		},
		Change: c,
	}
	if c.Property == domain.PropertyStateName {
		evt.Type = domain.EventStateRenamed
	}
	r.hooks.OnChangeRecorded(context.Background(), evt)
}

// IsLockedForEditing reports whether a save is outstanding.
func (r *Recorder) IsLockedForEditing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

// Len returns the number of recorded changes.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

// Changes returns a copy of the log in recording order.
func (r *Recorder) Changes() []domain.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Change(nil), r.changes...)
}

// PopLast removes and returns the most recent change.
func (r *Recorder) PopLast() (domain.Change, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return domain.Change{}, false
	}
	last := r.changes[len(r.changes)-1]
	r.changes = r.changes[:len(r.changes)-1]
	return last, true
}

// Discard drops every recorded change. It is refused while a save is
// outstanding.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		return domain.ErrSaveInProgress
	}
	r.changes = nil
	return nil
}

// Net returns the log reduced to its effect. See Net.
func (r *Recorder) Net() []domain.Change {
	return Net(r.Changes())
}

// Save hands the net change list to saver. The recorder is locked for the
// duration of the call; on success the log is cleared, on failure it is
// kept intact for a retry and the failure is reported to the notifier.
// It returns the version assigned by the saver.
func (r *Recorder) Save(ctx context.Context, saver ports.ChangeSaver, version int, message string) (int, error) {
	r.mu.Lock()
	if r.locked {
		r.mu.Unlock()
		return 0, domain.ErrSaveInProgress
	}
	if len(r.changes) == 0 {
		r.mu.Unlock()
		return 0, domain.ErrNothingToSave
	}
	r.locked = true
	pending := Net(r.changes)
	recorded := len(r.changes)
	r.mu.Unlock()

	r.logger.Debug("Saving change list", "exploration_id", r.explorationID, "changes", len(pending), "recorded", recorded)
	newVersion, err := saver.SaveChanges(ctx, r.explorationID, version, pending, message)

	r.mu.Lock()
	r.locked = false
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("Save failed", "exploration_id", r.explorationID, "err", err)
		if r.notifier != nil {
			r.notifier.Warn(fmt.Sprintf("Error saving changes: %v", err))
		}
		return 0, fmt.Errorf("save failed: %w", err)
	}
	r.changes = nil
	r.mu.Unlock()

	r.logger.Info("Change list saved", "exploration_id", r.explorationID, "version", newVersion)
	return newVersion, nil
}

// Net collapses repeated edits of the same property between structural
// changes (renames, additions, deletions) into one edit carrying the first
// old value and the last new value, then drops edits whose old and new
// values are equal. Structural changes are kept in place.
func Net(changes []domain.Change) []domain.Change {
	out := make([]domain.Change, 0, len(changes))
	index := make(map[string]int)

	for _, c := range changes {
		if c.IsStructural() {
			out = append(out, c)
			index = make(map[string]int)
			continue
		}
		if i, ok := index[c.Key()]; ok {
			out[i].NewValue = c.NewValue
			continue
		}
		index[c.Key()] = len(out)
		out = append(out, c)
	}

	net := out[:0]
	for _, c := range out {
		if !c.IsStructural() && reflect.DeepEqual(c.OldValue, c.NewValue) {
			continue
		}
		net = append(net, c)
	}
	return net
}
