package domain

import (
	"reflect"
	"sort"
)

// ExplorationDiff represents the changes between two exploration snapshots.
// It is serialized to JSON and streamed to editors watching the exploration.
type ExplorationDiff struct {
	// ExplorationID is always present to identify the target.
	ExplorationID string `json:"exploration_id"`

	Version       *int    `json:"version,omitempty"`
	Title         *string `json:"title,omitempty"`
	Category      *string `json:"category,omitempty"`
	InitStateName *string `json:"init_state_name,omitempty"`

	// Added, Removed and Modified list state names. Renames show up as
	// one removal plus one addition.
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Modified []string `json:"modified,omitempty"`
}

// Diff calculates the difference between oldExp and newExp.
// If oldExp is nil, it returns a diff representing the entire newExp (initial load).
// It returns nil when nothing changed.
func Diff(oldExp, newExp *Exploration) *ExplorationDiff {
	if newExp == nil {
		return nil
	}

	diff := &ExplorationDiff{ExplorationID: newExp.ID}

	if oldExp == nil || oldExp.Version != newExp.Version {
		diff.Version = &newExp.Version
	}
	if oldExp == nil || oldExp.Title != newExp.Title {
		diff.Title = &newExp.Title
	}
	if oldExp == nil || oldExp.Category != newExp.Category {
		diff.Category = &newExp.Category
	}
	if oldExp == nil || oldExp.InitStateName != newExp.InitStateName {
		diff.InitStateName = &newExp.InitStateName
	}

	diff.Added, diff.Removed, diff.Modified = diffStates(oldExp, newExp)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffStates(oldExp, newExp *Exploration) (added, removed, modified []string) {
	var oldStates map[string]*State
	if oldExp != nil {
		oldStates = oldExp.States
	}

	for name, s := range newExp.States {
		prev, exists := oldStates[name]
		if !exists {
			added = append(added, name)
			continue
		}
		if !reflect.DeepEqual(prev, s) {
			modified = append(modified, name)
		}
	}
	for name := range oldStates {
		if _, exists := newExp.States[name]; !exists {
			removed = append(removed, name)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(modified)
	return added, removed, modified
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ExplorationDiff) IsEmpty() bool {
	return d.Version == nil &&
		d.Title == nil &&
		d.Category == nil &&
		d.InitStateName == nil &&
		len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Modified) == 0
}
