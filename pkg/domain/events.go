package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventChangeRecorded  EventType = "change_recorded"
	EventStateRenamed    EventType = "state_renamed"
	EventCommitted       EventType = "committed"
	EventAnswerSubmitted EventType = "answer_submitted"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp     time.Time `json:"timestamp"`
	Type          EventType `json:"type"`
	ExplorationID string    `json:"exploration_id"`
}

// EditEvent describes a recorded edit.
type EditEvent struct {
	EventBase
	Change Change `json:"change"`
}

// CommitEvent describes a persisted change list.
type CommitEvent struct {
	EventBase
	CommitID string `json:"commit_id"`
	Version  int    `json:"version"`
	Changes  int    `json:"changes"`
	Message  string `json:"message,omitempty"`
}

// AnswerEvent describes a classified learner answer.
type AnswerEvent struct {
	EventBase
	StateName string `json:"state_name"`
	Answer    string `json:"answer"`
	Dest      string `json:"dest"`
	Rule      string `json:"rule"`
}

// LifecycleHooks defines callbacks for observability.
// OnChangeRecorded fires after the change is applied, outside the graph
// store lock, and never for an edit that was rejected.
type LifecycleHooks struct {
	OnChangeRecorded  func(context.Context, *EditEvent)
	OnCommitted       func(context.Context, *CommitEvent)
	OnAnswerSubmitted func(context.Context, *AnswerEvent)
}
