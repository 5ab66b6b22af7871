package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/ports"
)

// Recorder receives every mutation applied through the Store. Append runs
// under the Store lock; Announce runs after the change is applied and the
// lock is released, and never for a change whose apply failed.
type Recorder interface {
	Append(c domain.Change) error
	Announce(c domain.Change)
	IsLockedForEditing() bool
	PopLast() (domain.Change, bool)
}

// ArgValidator checks widget customization args against a widget schema.
type ArgValidator interface {
	ValidateArgs(widgetID string, args map[string]any) error
}

// Store is the in-memory state graph of one exploration.
// All operations are safe for concurrent use; a rename is observed either
// entirely or not at all.
type Store struct {
	mu        sync.RWMutex
	exp       *domain.Exploration
	recorder  Recorder
	notifier  ports.Notifier
	validator ArgValidator
	logger    *slog.Logger

	// applied holds changes committed under mu, announced by unlock.
	applied []domain.Change
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder appends every mutation to r and refuses edits while r is locked.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// WithNotifier sets where user-facing warnings go.
func WithNotifier(n ports.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithArgValidator enables schema validation of widget customization args.
func WithArgValidator(v ArgValidator) Option {
	return func(s *Store) {
		s.validator = v
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store over a private copy of exp.
func New(exp *domain.Exploration, opts ...Option) *Store {
	s := &Store{
		exp:    exp.Clone(),
		logger: logging.NewNop(),
	}
	if s.exp.States == nil {
		s.exp.States = map[string]*domain.State{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() *domain.Exploration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exp.Clone()
}

// State returns a copy of the named state.
func (s *Store) State(name string) (*domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.exp.States[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, name)
	}
	return st.Clone(), nil
}

// StateNames returns the state names in lexical order.
func (s *Store) StateNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exp.StateNames()
}

// InitStateName returns the distinguished first state.
func (s *Store) InitStateName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exp.InitStateName
}

// RenameState moves oldName to newName, rewriting every rule pointing at it
// and the init state name. Uncommitted edits on the state move with it.
func (s *Store) RenameState(oldName, newName string) error {
	newName = strings.TrimSpace(newName)

	s.mu.Lock()
	defer s.unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}
	if _, ok := s.exp.States[oldName]; !ok {
		return s.reject(fmt.Errorf("%w: %s", domain.ErrStateNotFound, oldName))
	}
	if err := s.validateNewName(oldName, newName); err != nil {
		return s.reject(err)
	}
	if newName == oldName {
		return nil
	}

	return s.commit(domain.Change{
		Property:  domain.PropertyStateName,
		StateName: oldName,
		OldValue:  oldName,
		NewValue:  newName,
	})
}

func (s *Store) validateNewName(oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("%w: state name cannot be empty", domain.ErrInvalidStateName)
	}
	if utf8.RuneCountInString(newName) > domain.MaxStateNameLength {
		return fmt.Errorf("%w: state names should be at most %d characters long", domain.ErrStateNameTooLong, domain.MaxStateNameLength)
	}
	if strings.EqualFold(newName, domain.EndDest) {
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidStateName, newName)
	}
	if newName != oldName {
		if _, exists := s.exp.States[newName]; exists {
			return fmt.Errorf("%w: the name %q is already in use", domain.ErrDuplicateStateName, newName)
		}
	}
	return nil
}

// SetContent replaces the content blocks of a state.
func (s *Store) SetContent(name string, content []domain.ContentBlock) error {
	return s.setStateProperty(name, domain.PropertyContent, append([]domain.ContentBlock(nil), content...), func(st *domain.State) any {
		return append([]domain.ContentBlock(nil), st.Content...)
	})
}

// SetParamChanges replaces the param changes applied on entering a state.
func (s *Store) SetParamChanges(name string, changes []domain.ParamChange) error {
	return s.setStateProperty(name, domain.PropertyParamChanges, domain.CloneParamChanges(changes), func(st *domain.State) any {
		return st.Clone().ParamChanges
	})
}

// SetWidgetID switches the interactive widget of a state.
func (s *Store) SetWidgetID(name, widgetID string) error {
	if widgetID == "" {
		return s.reject(fmt.Errorf("%w: widget id cannot be empty", domain.ErrInvalidChange))
	}
	return s.setStateProperty(name, domain.PropertyWidgetID, widgetID, func(st *domain.State) any {
		return st.Widget.WidgetID
	})
}

// SetWidgetCustomizationArgs replaces the widget arguments, validating them
// when an ArgValidator is configured.
func (s *Store) SetWidgetCustomizationArgs(name string, args map[string]any) error {
	if s.validator != nil {
		s.mu.RLock()
		st, ok := s.exp.States[name]
		widgetID := ""
		if ok {
			widgetID = st.Widget.WidgetID
		}
		s.mu.RUnlock()
		if ok {
			if err := s.validator.ValidateArgs(widgetID, args); err != nil {
				return s.reject(fmt.Errorf("%w: %v", domain.ErrInvalidChange, err))
			}
		}
	}
	return s.setStateProperty(name, domain.PropertyWidgetCustomizationArgs, domain.CloneArgs(args), func(st *domain.State) any {
		return st.Clone().Widget.CustomizationArgs
	})
}

// SetWidgetHandlers replaces the rule specs of a state's widget.
func (s *Store) SetWidgetHandlers(name string, handlers []domain.Handler) error {
	s.mu.RLock()
	err := s.checkDests(handlers)
	s.mu.RUnlock()
	if err != nil {
		return s.reject(err)
	}
	return s.setStateProperty(name, domain.PropertyWidgetHandlers, domain.CloneHandlers(handlers), func(st *domain.State) any {
		return domain.CloneHandlers(st.Widget.Handlers)
	})
}

// SetWidgetSticky controls whether the widget persists across states.
func (s *Store) SetWidgetSticky(name string, sticky bool) error {
	return s.setStateProperty(name, domain.PropertyWidgetSticky, sticky, func(st *domain.State) any {
		return st.Widget.Sticky
	})
}

func (s *Store) setStateProperty(name, property string, value any, old func(*domain.State) any) error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}
	st, ok := s.exp.States[name]
	if !ok {
		return s.reject(fmt.Errorf("%w: %s", domain.ErrStateNotFound, name))
	}
	return s.commit(domain.Change{
		Property:  property,
		StateName: name,
		OldValue:  old(st),
		NewValue:  value,
	})
}

// AddState creates a new default state.
func (s *Store) AddState(name string) error {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}
	if err := s.validateNewName("", name); err != nil {
		return s.reject(err)
	}
	return s.commit(domain.Change{
		Property:  domain.PropertyAddState,
		StateName: name,
		NewValue:  domain.NewState(name),
	})
}

// DeleteState removes a state. Rules pointing at it are redirected back to
// their own source state. The init state cannot be deleted.
func (s *Store) DeleteState(name string) error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}
	st, ok := s.exp.States[name]
	if !ok {
		return s.reject(fmt.Errorf("%w: %s", domain.ErrStateNotFound, name))
	}
	if name == s.exp.InitStateName {
		return s.reject(fmt.Errorf("%w: %s", domain.ErrDeleteInitState, name))
	}

	old := domain.DeletedState{State: st.Clone(), Handlers: map[string][]domain.Handler{}}
	for source, other := range s.exp.States {
		if source == name {
			continue
		}
		if pointsAt(other, name) {
			old.Handlers[source] = domain.CloneHandlers(other.Widget.Handlers)
		}
	}

	return s.commit(domain.Change{
		Property:  domain.PropertyDeleteState,
		StateName: name,
		OldValue:  old,
	})
}

// SetTitle changes the exploration title.
func (s *Store) SetTitle(title string) error {
	return s.setExplorationProperty(domain.PropertyTitle, title, func() any { return s.exp.Title })
}

// SetCategory changes the exploration category.
func (s *Store) SetCategory(category string) error {
	return s.setExplorationProperty(domain.PropertyCategory, category, func() any { return s.exp.Category })
}

// SetInitStateName changes the state learners start from.
func (s *Store) SetInitStateName(name string) error {
	s.mu.RLock()
	_, ok := s.exp.States[name]
	s.mu.RUnlock()
	if !ok {
		return s.reject(fmt.Errorf("%w: %s", domain.ErrStateNotFound, name))
	}
	return s.setExplorationProperty(domain.PropertyInitStateName, name, func() any { return s.exp.InitStateName })
}

// SetParamSpecs replaces the exploration parameter declarations.
func (s *Store) SetParamSpecs(specs map[string]domain.ParamSpec) error {
	return s.setExplorationProperty(domain.PropertyParamSpecs, specs, func() any {
		out := make(map[string]domain.ParamSpec, len(s.exp.ParamSpecs))
		for k, v := range s.exp.ParamSpecs {
			out[k] = v
		}
		return out
	})
}

func (s *Store) setExplorationProperty(property string, value any, old func() any) error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}
	return s.commit(domain.Change{
		Property: property,
		OldValue: old(),
		NewValue: value,
	})
}

// Apply replays a change without recording it. It is how a saved change
// list is re-applied to a fresh snapshot.
func (s *Store) Apply(c domain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(c)
}

// UndoLastChange reverts the most recent recorded change.
func (s *Store) UndoLastChange() error {
	if s.recorder == nil {
		return fmt.Errorf("%w: no recorder configured", domain.ErrNothingToSave)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnlocked(); err != nil {
		return err
	}
	last, ok := s.recorder.PopLast()
	if !ok {
		return domain.ErrNothingToSave
	}
	if err := s.revert(last); err != nil {
		_ = s.recorder.Append(last)
		return err
	}
	s.logger.Debug("Change undone", "property", last.Property, "state", last.StateName)
	return nil
}

// checkUnlocked must be called with s.mu held.
func (s *Store) checkUnlocked() error {
	if s.recorder != nil && s.recorder.IsLockedForEditing() {
		return s.reject(domain.ErrLockedForEditing)
	}
	return nil
}

// commit records c then applies it. Callers hold s.mu, release it with
// unlock and have validated c.
func (s *Store) commit(c domain.Change) error {
	if s.recorder != nil {
		if err := s.recorder.Append(c); err != nil {
			return s.reject(err)
		}
	}
	if err := s.apply(c); err != nil {
		if s.recorder != nil {
			s.recorder.PopLast()
		}
		return s.reject(err)
	}
	s.applied = append(s.applied, c)
	s.logger.Debug("Change applied", "property", c.Property, "state", c.StateName)
	return nil
}

// unlock releases s.mu, then announces the changes committed while it was held.
func (s *Store) unlock() {
	applied := s.applied
	s.applied = nil
	s.mu.Unlock()
	if s.recorder == nil {
		return
	}
	for _, c := range applied {
		s.recorder.Announce(c)
	}
}

func (s *Store) reject(err error) error {
	if s.notifier != nil {
		s.notifier.Warn(warningText(err))
	}
	s.logger.Debug("Edit rejected", "err", err)
	return err
}

func warningText(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// checkDests reports rule destinations that are neither a state nor END.
func (s *Store) checkDests(handlers []domain.Handler) error {
	var errs []error
	for _, h := range handlers {
		for _, r := range h.RuleSpecs {
			if r.Dest == domain.EndDest {
				continue
			}
			if _, ok := s.exp.States[r.Dest]; !ok {
				errs = append(errs, fmt.Errorf("%w: rule %q points at unknown state %q", domain.ErrInvalidChange, r.Name, r.Dest))
			}
		}
	}
	return errors.Join(errs...)
}

func pointsAt(st *domain.State, dest string) bool {
	for _, h := range st.Widget.Handlers {
		for _, r := range h.RuleSpecs {
			if r.Dest == dest {
				return true
			}
		}
	}
	return false
}
