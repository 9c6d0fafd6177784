// Package hotkey turns a raw key-event stream into activation signals.
package hotkey

import (
	"context"
	"time"

	"markestedt/cliptrans/platform"
)

// DefaultWindow is the maximum gap between the two presses of a double-tap.
const DefaultWindow = 500 * time.Millisecond

// Detector recognizes a double press of the tracked key.
//
// A Detector is not safe for concurrent use. It is owned by the goroutine
// that consumes raw key events.
type Detector struct {
	key    string
	cancel string
	window time.Duration

	lastPress time.Time
	count     int
}

// NewDetector creates a detector for key. Releasing the cancel modifier
// discards a double press in progress.
func NewDetector(key, cancel string, window time.Duration) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{
		key:    key,
		cancel: cancel,
		window: window,
	}
}

// Handle feeds one key event observed at now and reports whether it
// completed a double press.
func (d *Detector) Handle(evt platform.KeyEvent, now time.Time) bool {
	if !evt.Valid() {
		d.count = 0
		return false
	}

	switch {
	case evt.Type == platform.Pressed && evt.Key == d.key:
		if !d.lastPress.IsZero() && now.Sub(d.lastPress) < d.window {
			d.count++
		} else {
			d.count = 1
		}
		d.lastPress = now

		if d.count == 2 {
			d.count = 0
			return true
		}

	case evt.Type == platform.Released && d.cancel != "" && evt.Key == d.cancel:
		d.count = 0
	}

	return false
}

// Pending returns the number of presses counted toward the next activation.
func (d *Detector) Pending() int {
	return d.count
}

// Run consumes events until ctx is done or the channel closes, calling
// activate for every double press. activate runs on the caller's goroutine
// and must not block.
func (d *Detector) Run(ctx context.Context, events <-chan platform.KeyEvent, activate func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if d.Handle(evt, time.Now()) {
				activate()
			}
		}
	}
}
