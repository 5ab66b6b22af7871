package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// Store implements ports.ExplorationStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Exploration
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store, optionally seeded with explorations.
func NewStore(seed ...*domain.Exploration) *Store {
	s := &Store{
		data: make(map[string]*domain.Exploration),
	}
	for _, exp := range seed {
		s.data[exp.ID] = exp.Clone()
	}
	return s
}

// Save persists a deep copy of the exploration.
func (s *Store) Save(ctx context.Context, exp *domain.Exploration) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := exp.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[exp.ID] = copied
	return nil
}

// Load retrieves a copy of the exploration so callers cannot mutate the store by pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Exploration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.data[id]
	if !ok {
		return nil, domain.ErrExplorationNotFound
	}
	return exp.Clone(), nil
}

// Delete removes the exploration.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored exploration IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
