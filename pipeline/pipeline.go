// Package pipeline turns a hotkey activation into a delivered translation:
// acquire clipboard text, normalize it, consult the cache, then stream from
// the engine and persist the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"markestedt/cliptrans/cache"
	"markestedt/cliptrans/translate"
)

const (
	DefaultAttempts = 100
	DefaultInterval = 10 * time.Millisecond
)

// TextProvider returns the current raw source text, typically the clipboard
type TextProvider func() (string, error)

// Cache is the part of the translation cache the pipeline needs
type Cache interface {
	Lookup(ctx context.Context, text, style string) cache.Result
	Upsert(ctx context.Context, original, translation, style string)
}

// Options configures a Pipeline
type Options struct {
	// Attempts bounds clipboard reads per activation
	Attempts int
	// Interval is the delay between clipboard reads
	Interval time.Duration
	// Style is the translation style used for lookups and requests
	Style string
}

// Pipeline runs activations. Each Run is independent; only the last
// normalized text is shared between them.
type Pipeline struct {
	cache  Cache
	client translate.StreamingClient
	sink   Sink
	opts   Options

	mu       sync.Mutex
	lastText string
	wg       sync.WaitGroup
}

// New creates a pipeline delivering events to sink
func New(c Cache, client translate.StreamingClient, sink Sink, opts Options) *Pipeline {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Interval < 0 {
		opts.Interval = DefaultInterval
	}
	return &Pipeline{
		cache:  c,
		client: client,
		sink:   sink,
		opts:   opts,
	}
}

// Style returns the configured translation style
func (p *Pipeline) Style() string {
	return p.opts.Style
}

// Go runs an activation on its own goroutine so the caller (the key
// listener) never waits on the clipboard or the network
func (p *Pipeline) Go(ctx context.Context, provider TextProvider) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(ctx, provider)
	}()
}

// Wait blocks until every activation started with Go has finished
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Run executes one activation to completion and returns its ID, or an
// empty string when there was nothing to translate
func (p *Pipeline) Run(ctx context.Context, provider TextProvider) (id string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panic", "activation", id, "panic", r)
			if id == "" {
				id = uuid.NewString()
			}
			p.sink.OnError(id, translate.ErrorText(fmt.Errorf("%v", r)))
		}
	}()

	raw, ok := p.acquire(ctx, provider)
	if !ok {
		slog.Debug("Nothing to translate")
		return ""
	}

	text := Normalize(raw)
	if text == "" {
		return ""
	}

	id = uuid.NewString()
	duplicate := p.swapLastText(text)
	p.sink.OnLoadingStarted(id)

	res := p.cache.Lookup(ctx, text, p.opts.Style)
	if res.Hit() {
		slog.Info("Cache hit", "activation", id, "match", res.Kind, "score", res.Score, "duplicate", duplicate)
		p.sink.OnFinished(id, Result{Text: res.Record.Translation, Match: res.Kind, Score: res.Score})
		return id
	}
	if duplicate {
		slog.Debug("Repeated text not cached, calling engine", "activation", id)
	}

	p.stream(ctx, id, text)
	return id
}

func (p *Pipeline) stream(ctx context.Context, id, text string) {
	p.sink.OnSourceKnown(id, text)

	start := time.Now()
	var sb strings.Builder
	var streamErr error

	for chunk, err := range p.client.Stream(ctx, translate.Request{Text: text, Style: p.opts.Style}) {
		if err != nil {
			streamErr = err
			p.sink.OnError(id, chunk)
			break
		}
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		p.sink.OnChunk(id, chunk)
	}

	translation := sb.String()
	p.sink.OnFinished(id, Result{Text: translation, Match: cache.Miss})

	if streamErr != nil {
		slog.Warn("Translation failed, not caching", "activation", id, "error", streamErr)
		return
	}

	slog.Info("Translation finished", "activation", id, "provider", p.client.Name(), "chars", len(translation), "duration", time.Since(start))
	// A delivered translation is stored even if shutdown has begun
	p.cache.Upsert(context.WithoutCancel(ctx), text, translation, p.opts.Style)
}

// acquire polls provider until it returns non-blank text or the attempt
// budget runs out. Provider errors count as empty reads.
func (p *Pipeline) acquire(ctx context.Context, provider TextProvider) (string, bool) {
	var lastErr error
	for attempt := 0; attempt < p.opts.Attempts; attempt++ {
		if attempt > 0 {
			if !sleep(ctx, p.opts.Interval) {
				return "", false
			}
		}
		text, err := provider()
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	if lastErr != nil && !errors.Is(lastErr, context.Canceled) {
		slog.Debug("Clipboard read failed", "attempts", p.opts.Attempts, "error", lastErr)
	}
	return "", false
}

// swapLastText records text as the latest activation and reports whether
// it repeats the previous one
func (p *Pipeline) swapLastText(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	dup := p.lastText == text
	p.lastText = text
	return dup
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
