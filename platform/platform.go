package platform

import (
	"context"
)

// EventType represents the type of key event
type EventType int

const (
	Pressed EventType = iota + 1
	Released
)

// KeyEvent is a raw key transition reported by the keyboard hook.
// Key holds a lower-case key name ("c", "ctrl", "win", ...).
type KeyEvent struct {
	Type EventType
	Key  string
}

// Valid reports whether the event carries a known type and a key name.
func (e KeyEvent) Valid() bool {
	return (e.Type == Pressed || e.Type == Released) && e.Key != ""
}

// KeySource streams raw keyboard events system-wide
type KeySource interface {
	Listen(ctx context.Context) (<-chan KeyEvent, error)
}

// Clipboard provides clipboard access
type Clipboard interface {
	Get() (string, error)
	Set(text string) error
}
