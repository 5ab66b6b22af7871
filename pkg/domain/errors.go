package domain

import "errors"

// ErrExplorationNotFound is returned when an exploration ID cannot be found in the store.
var ErrExplorationNotFound = errors.New("exploration not found")

// ErrStateNotFound is returned when a state name does not exist in the graph.
var ErrStateNotFound = errors.New("state not found")

var (
	// ErrInvalidStateName is returned for empty or reserved state names.
	ErrInvalidStateName = errors.New("invalid state name")
	// ErrStateNameTooLong is returned when a name exceeds MaxStateNameLength.
	ErrStateNameTooLong = errors.New("state name too long")
	// ErrDuplicateStateName is returned when the name is already in use.
	ErrDuplicateStateName = errors.New("state name already in use")
	// ErrDeleteInitState is returned when deleting the initial state.
	ErrDeleteInitState = errors.New("cannot delete the initial state")
)

var (
	// ErrLockedForEditing is returned when an edit arrives while a save is outstanding.
	ErrLockedForEditing = errors.New("exploration is locked for editing while a save is pending")
	// ErrSaveInProgress is returned when a second save starts before the first completes.
	ErrSaveInProgress = errors.New("a save is already in progress")
	// ErrNothingToSave is returned when the change list is empty.
	ErrNothingToSave = errors.New("no changes to save")
	// ErrVersionConflict is returned when a commit targets a stale version.
	ErrVersionConflict = errors.New("exploration version conflict")
	// ErrInvalidChange is returned when a change record cannot be applied.
	ErrInvalidChange = errors.New("invalid change")
)

// ErrSubmissionPending is returned when an answer is submitted while the previous one is in flight.
var ErrSubmissionPending = errors.New("an answer submission is already pending")
