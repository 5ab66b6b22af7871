package ports_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/ports"
)

// MockStore is a JSON-backed in-memory implementation of ExplorationStore for testing purposes.
type MockStore struct {
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

func (m *MockStore) Save(ctx context.Context, exp *domain.Exploration) error {
	// Serialize to simulate a real backend
	b, err := json.Marshal(exp)
	if err != nil {
		return err
	}
	m.data[exp.ID] = b
	return nil
}

func (m *MockStore) Load(ctx context.Context, id string) (*domain.Exploration, error) {
	b, ok := m.data[id]
	if !ok {
		return nil, domain.ErrExplorationNotFound
	}
	var exp domain.Exploration
	if err := json.Unmarshal(b, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	delete(m.data, id)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestExplorationStore_Contract(t *testing.T) {
	// The contract must hold for a plain serializing store.
	ports.RunExplorationStoreContract(t, NewMockStore())
}

func TestNotifierFunc(t *testing.T) {
	var got string
	var n ports.Notifier = ports.NotifierFunc(func(msg string) { got = msg })
	n.Warn("careful")
	if got != "careful" {
		t.Errorf("expected 'careful', got %q", got)
	}
}
