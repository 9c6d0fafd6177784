// Package notify shows finished translations as desktop notifications.
package notify

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/gen2brain/beeep"

	"markestedt/cliptrans/cache"
	"markestedt/cliptrans/pipeline"
)

const (
	appTitle = "cliptrans"
	// maxBody keeps notification text within what toasts display
	maxBody = 240
)

// NotifyFunc displays a notification
type NotifyFunc func(title, message string) error

// Sink pops a notification when an activation finishes or fails. Loading
// and chunk events are ignored.
type Sink struct {
	notify NotifyFunc
}

// New creates a sink that uses the desktop notification service
func New() *Sink {
	return NewWithFunc(func(title, message string) error {
		return beeep.Notify(title, message, "")
	})
}

// NewWithFunc creates a sink with a custom notifier
func NewWithFunc(fn NotifyFunc) *Sink {
	return &Sink{notify: fn}
}

func (s *Sink) OnLoadingStarted(string)      {}
func (s *Sink) OnSourceKnown(string, string) {}
func (s *Sink) OnChunk(string, string)       {}

func (s *Sink) OnFinished(id string, r pipeline.Result) {
	if r.Text == "" {
		return
	}
	title := appTitle
	if r.Match != cache.Miss {
		title = fmt.Sprintf("%s (cached, %s %.0f%%)", appTitle, r.Match, r.Score)
	}
	s.show(id, title, r.Text)
}

func (s *Sink) OnError(id, message string) {
	s.show(id, appTitle+" failed", message)
}

func (s *Sink) show(id, title, body string) {
	if err := s.notify(title, truncate(body, maxBody)); err != nil {
		slog.Warn("Failed to show notification", "activation", id, "error", err)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
