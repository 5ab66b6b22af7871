package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/lessonkit/pkg/adapters/memory"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/graph"
)

// Builder manages the exploration construction.
type Builder struct {
	exp   *domain.Exploration
	order []string
	nodes map[string]*StateBuilder
}

// New creates a builder for an exploration without states.
// The first state added becomes the init state.
func New(id, title string) *Builder {
	exp := domain.NewExploration(id, title, "")
	exp.States = map[string]*domain.State{}
	exp.InitStateName = ""
	return &Builder{
		exp:   exp,
		nodes: make(map[string]*StateBuilder),
	}
}

// Add creates a new state. If the state already exists, it returns the
// existing builder.
func (b *Builder) Add(name string) *StateBuilder {
	if sb, ok := b.nodes[name]; ok {
		return sb
	}
	sb := &StateBuilder{name: name, state: domain.NewState(name)}
	sb.state.Content = nil
	b.nodes[name] = sb
	b.order = append(b.order, name)
	return sb
}

// Start overrides the init state.
func (b *Builder) Start(name string) *Builder {
	b.exp.InitStateName = name
	return b
}

// Param adds an exploration-level parameter change applied on start.
func (b *Builder) Param(name, generatorID string, args map[string]any) *Builder {
	b.exp.ParamChanges = append(b.exp.ParamChanges, domain.ParamChange{
		Name:              name,
		GeneratorID:       generatorID,
		CustomizationArgs: args,
	})
	return b
}

// Build assembles the exploration and validates its graph.
func (b *Builder) Build() (*domain.Exploration, error) {
	if len(b.order) == 0 {
		return nil, errors.New("exploration has no states")
	}
	exp := b.exp.Clone()
	if exp.InitStateName == "" {
		exp.InitStateName = b.order[0]
	}
	for _, name := range b.order {
		exp.States[name] = b.nodes[name].Build()
	}
	if err := graph.Check(exp); err != nil {
		return nil, fmt.Errorf("invalid exploration %s: %w", exp.ID, err)
	}
	return exp, nil
}

// Store builds the exploration and wraps it in an in-memory store.
func (b *Builder) Store() (*memory.Store, error) {
	exp, err := b.Build()
	if err != nil {
		return nil, err
	}
	return memory.NewStore(exp), nil
}
