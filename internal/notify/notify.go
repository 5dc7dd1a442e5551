// Package notify carries user-facing notifications (toasts) from the HTTP
// client and services to whatever renders them.
package notify

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier receives user-facing notifications.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a function to Notifier.
type Func func(level Level, message string)

// Notify calls f.
func (f Func) Notify(level Level, message string) {
	f(level, message)
}

// Discard drops every notification.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(Level, string) {}
