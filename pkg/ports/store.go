package ports

import (
	"context"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// ExplorationStore persists exploration snapshots.
type ExplorationStore interface {
	ExplorationLoader

	// Save persists the snapshot under exp.ID, replacing any previous one.
	Save(ctx context.Context, exp *domain.Exploration) error

	// Delete removes the exploration. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
}

// ChangeSaver is the save endpoint a change list is committed to.
type ChangeSaver interface {
	// SaveChanges applies changes on top of version and returns the new version.
	SaveChanges(ctx context.Context, explorationID string, version int, changes []domain.Change, message string) (int, error)
}

// AnswerLog records learner answers per state.
type AnswerLog interface {
	Record(ctx context.Context, explorationID, stateName, answer string) error
	Answers(ctx context.Context, explorationID, stateName string) ([]string, error)
}
