// Package notify provides ports.Notifier implementations.
package notify

import (
	"log/slog"
	"sync"

	"github.com/aretw0/lessonkit/pkg/ports"
)

// DefaultCapacity bounds the warnings kept by a WarningList.
const DefaultCapacity = 10

// WarningList accumulates warnings for display until explicitly cleared.
// Once full, the oldest warning is dropped.
type WarningList struct {
	mu       sync.Mutex
	warnings []string
	capacity int
}

// NewWarningList creates a list holding at most capacity warnings
// (DefaultCapacity when capacity <= 0).
func NewWarningList(capacity int) *WarningList {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &WarningList{capacity: capacity}
}

// Warn implements ports.Notifier. Duplicate consecutive warnings are kept once.
func (l *WarningList) Warn(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.warnings); n > 0 && l.warnings[n-1] == message {
		return
	}
	l.warnings = append(l.warnings, message)
	if len(l.warnings) > l.capacity {
		l.warnings = l.warnings[len(l.warnings)-l.capacity:]
	}
}

// Warnings returns the current warnings, oldest first.
func (l *WarningList) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

// Clear removes all warnings.
func (l *WarningList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = nil
}

// Logger forwards warnings to a structured logger.
type Logger struct {
	Log *slog.Logger
}

// Warn implements ports.Notifier.
func (l Logger) Warn(message string) {
	if l.Log != nil {
		l.Log.Warn(message)
	}
}

// Multi fans a warning out to several notifiers.
type Multi []ports.Notifier

// Warn implements ports.Notifier.
func (m Multi) Warn(message string) {
	for _, n := range m {
		if n != nil {
			n.Warn(message)
		}
	}
}

// Discard ignores every warning.
var Discard ports.Notifier = ports.NotifierFunc(func(string) {})
