package widget

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Source resolves widget definitions by ID.
type Source interface {
	Definition(ctx context.Context, widgetID string) (*Definition, error)
}

// Registry is an in-process Source.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates a registry holding defs.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		r.defs[d.ID] = d
	}
	return r
}

// DefaultRegistry returns a registry of the built-in widgets.
func DefaultRegistry() *Registry {
	return NewRegistry(Builtins()...)
}

// Register adds or replaces a definition.
func (r *Registry) Register(d *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.ID] = d
}

// Definition implements Source.
func (r *Registry) Definition(_ context.Context, widgetID string) (*Definition, error) {
	return r.Get(widgetID)
}

// Get returns the definition for widgetID.
func (r *Registry) Get(widgetID string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[widgetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWidget, widgetID)
	}
	return d, nil
}

// IDs returns the registered widget IDs in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateArgs checks args against the schema of widgetID.
func (r *Registry) ValidateArgs(widgetID string, args map[string]any) error {
	d, err := r.Get(widgetID)
	if err != nil {
		return err
	}
	return d.ValidateArgs(args)
}

// Validator adapts any Source to the synchronous ValidateArgs contract used
// by the graph store.
type Validator struct {
	Ctx    context.Context
	Source Source
}

// ValidateArgs resolves the widget through the source, then validates.
func (v Validator) ValidateArgs(widgetID string, args map[string]any) error {
	ctx := v.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := v.Source.Definition(ctx, widgetID)
	if err != nil {
		return err
	}
	return d.ValidateArgs(args)
}

// Decode maps loosely typed customization args onto a typed struct such as
// TextInputArgs. Numeric strings and floats are coerced.
func Decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decode customization args: %w", err)
	}
	return nil
}
