package ports

import (
	"context"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// ExplorationLoader retrieves exploration snapshots.
// This allows the source (Loam, FS, Redis, Memory) to be decoupled.
type ExplorationLoader interface {
	// Load returns a snapshot of the exploration.
	// Returns domain.ErrExplorationNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Exploration, error)

	// List returns the IDs of all available explorations.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled with the ID of a changed exploration.
	Watch(ctx context.Context) (<-chan string, error)
}
