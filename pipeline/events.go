package pipeline

import (
	"context"
	"sync"

	"markestedt/cliptrans/cache"
)

// EventKind identifies a pipeline lifecycle event
type EventKind int

const (
	EventLoading EventKind = iota + 1
	EventSourceKnown
	EventChunk
	EventFinished
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventLoading:
		return "loading"
	case EventSourceKnown:
		return "source"
	case EventChunk:
		return "chunk"
	case EventFinished:
		return "finished"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one message from a capture to its presentation.
//
// Text holds the source for EventSourceKnown, the fragment for EventChunk,
// the message for EventError and the full translation for EventFinished.
// Match and Score describe where a finished translation came from.
type Event struct {
	Activation string          `json:"activation"`
	Kind       EventKind       `json:"-"`
	Text       string          `json:"text,omitempty"`
	Match      cache.MatchKind `json:"-"`
	Score      float64         `json:"score,omitempty"`
}

// Cached reports whether a finished event was served from the cache
func (e Event) Cached() bool {
	return e.Match != cache.Miss
}

// Sink receives the events of every activation. Events of one activation
// arrive in order; events of different activations may interleave.
type Sink interface {
	OnLoadingStarted(activation string)
	OnSourceKnown(activation, text string)
	OnChunk(activation, text string)
	OnFinished(activation string, result Result)
	OnError(activation, message string)
}

// Result is the final translation of an activation
type Result struct {
	Text  string
	Match cache.MatchKind
	Score float64
}

// Deliver routes an event to the matching Sink method
func Deliver(s Sink, e Event) {
	switch e.Kind {
	case EventLoading:
		s.OnLoadingStarted(e.Activation)
	case EventSourceKnown:
		s.OnSourceKnown(e.Activation, e.Text)
	case EventChunk:
		s.OnChunk(e.Activation, e.Text)
	case EventFinished:
		s.OnFinished(e.Activation, Result{Text: e.Text, Match: e.Match, Score: e.Score})
	case EventError:
		s.OnError(e.Activation, e.Text)
	}
}

// EventFunc adapts a function to a Sink
type EventFunc func(Event)

func (f EventFunc) OnLoadingStarted(id string) {
	f(Event{Activation: id, Kind: EventLoading})
}

func (f EventFunc) OnSourceKnown(id, text string) {
	f(Event{Activation: id, Kind: EventSourceKnown, Text: text})
}

func (f EventFunc) OnChunk(id, text string) {
	f(Event{Activation: id, Kind: EventChunk, Text: text})
}

func (f EventFunc) OnFinished(id string, r Result) {
	f(Event{Activation: id, Kind: EventFinished, Text: r.Text, Match: r.Match, Score: r.Score})
}

func (f EventFunc) OnError(id, message string) {
	f(Event{Activation: id, Kind: EventError, Text: message})
}

// Channel is a Sink that queues events for a single consumer loop, so the
// presentation layer decides which goroutine handles them. After Close,
// events are dropped instead of queued.
type Channel struct {
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannel creates a channel sink with the given buffer size
func NewChannel(size int) *Channel {
	return &Channel{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Events returns the receive side of the queue
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Close releases blocked senders and makes Dispatch return once the
// queued events are delivered
func (c *Channel) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Channel) send(e Event) {
	select {
	case c.events <- e:
	case <-c.done:
	}
}

func (c *Channel) OnLoadingStarted(id string)     { EventFunc(c.send).OnLoadingStarted(id) }
func (c *Channel) OnSourceKnown(id, text string)  { EventFunc(c.send).OnSourceKnown(id, text) }
func (c *Channel) OnChunk(id, text string)        { EventFunc(c.send).OnChunk(id, text) }
func (c *Channel) OnFinished(id string, r Result) { EventFunc(c.send).OnFinished(id, r) }
func (c *Channel) OnError(id, message string)     { EventFunc(c.send).OnError(id, message) }

// Dispatch delivers queued events to sink until ctx is done or the
// channel is closed
func (c *Channel) Dispatch(ctx context.Context, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			c.drain(sink)
			return
		case e := <-c.events:
			Deliver(sink, e)
		}
	}
}

func (c *Channel) drain(sink Sink) {
	for {
		select {
		case e := <-c.events:
			Deliver(sink, e)
		default:
			return
		}
	}
}

// Multi fans every event out to several sinks in order
type Multi []Sink

func (m Multi) OnLoadingStarted(id string) {
	for _, s := range m {
		s.OnLoadingStarted(id)
	}
}

func (m Multi) OnSourceKnown(id, text string) {
	for _, s := range m {
		s.OnSourceKnown(id, text)
	}
}

func (m Multi) OnChunk(id, text string) {
	for _, s := range m {
		s.OnChunk(id, text)
	}
}

func (m Multi) OnFinished(id string, r Result) {
	for _, s := range m {
		s.OnFinished(id, r)
	}
}

func (m Multi) OnError(id, message string) {
	for _, s := range m {
		s.OnError(id, message)
	}
}

// Recorder is a Sink that keeps every event, for tests and one-shot runs
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds in order
func (r *Recorder) Kinds() []EventKind {
	events := r.Events()
	kinds := make([]EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (r *Recorder) OnLoadingStarted(id string)       { EventFunc(r.record).OnLoadingStarted(id) }
func (r *Recorder) OnSourceKnown(id, text string)    { EventFunc(r.record).OnSourceKnown(id, text) }
func (r *Recorder) OnChunk(id, text string)          { EventFunc(r.record).OnChunk(id, text) }
func (r *Recorder) OnFinished(id string, res Result) { EventFunc(r.record).OnFinished(id, res) }
func (r *Recorder) OnError(id, message string)       { EventFunc(r.record).OnError(id, message) }
