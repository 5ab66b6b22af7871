package ports

// Notifier is the capability components use to surface non-fatal,
// user-facing warnings.
type Notifier interface {
	Warn(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Warn calls f(message).
func (f NotifierFunc) Warn(message string) { f(message) }
