package pipeline

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/cliptrans/cache"
	"markestedt/cliptrans/storage"
	"markestedt/cliptrans/translate"
)

// fakeClient yields fixed chunks and optionally fails afterwards
type fakeClient struct {
	chunks []string
	err    error
	calls  atomic.Int32
}

func (c *fakeClient) Name() string              { return "fake" }
func (c *fakeClient) Warmup(context.Context)    {}
func (c *fakeClient) Keepalive(context.Context) {}

func (c *fakeClient) Stream(_ context.Context, _ translate.Request) iter.Seq2[string, error] {
	c.calls.Add(1)
	return func(yield func(string, error) bool) {
		for _, chunk := range c.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if c.err != nil {
			yield(translate.ErrorText(c.err), c.err)
		}
	}
}

// panicCache blows up on lookup
type panicCache struct{}

func (panicCache) Lookup(context.Context, string, string) cache.Result { panic("index corrupted") }
func (panicCache) Upsert(context.Context, string, string, string)      {}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return cache.New(db, cache.Options{Fuzzy: true, Threshold: cache.DefaultThreshold})
}

func fixedText(s string) TextProvider {
	return func() (string, error) { return s, nil }
}

func testOptions() Options {
	return Options{Attempts: 5, Interval: 0, Style: "Academic"}
}

func TestRun_CacheMissStreamsAndPersists(t *testing.T) {
	c := newTestCache(t)
	client := &fakeClient{chunks: []string{"Mer", "haba ", "dünya"}}
	rec := &Recorder{}
	p := New(c, client, rec, testOptions())
	ctx := context.Background()

	id := p.Run(ctx, fixedText("Hello\nworld"))
	require.NotEmpty(t, id)

	assert.Equal(t, []EventKind{EventLoading, EventSourceKnown, EventChunk, EventChunk, EventChunk, EventFinished}, rec.Kinds())

	events := rec.Events()
	assert.Equal(t, "Hello world", events[1].Text)
	finished := events[len(events)-1]
	assert.Equal(t, "Merhaba dünya", finished.Text)
	assert.False(t, finished.Cached())
	for _, e := range events {
		assert.Equal(t, id, e.Activation)
	}

	res := c.Lookup(ctx, "Hello world", "Academic")
	require.Equal(t, cache.ExactHit, res.Kind)
	assert.Equal(t, "Merhaba dünya", res.Record.Translation)
}

func TestRun_DuplicateServedFromCache(t *testing.T) {
	c := newTestCache(t)
	client := &fakeClient{chunks: []string{"Merhaba dünya"}}
	ctx := context.Background()

	first := &Recorder{}
	p := New(c, client, first, testOptions())
	p.Run(ctx, fixedText("Hello world"))
	require.Equal(t, int32(1), client.calls.Load())

	second := &Recorder{}
	p.sink = second
	p.Run(ctx, fixedText("  Hello\n world "))

	assert.Equal(t, int32(1), client.calls.Load(), "engine must not be called again")
	assert.Equal(t, []EventKind{EventLoading, EventFinished}, second.Kinds())
	finished := second.Events()[1]
	assert.Equal(t, "Merhaba dünya", finished.Text)
	assert.Equal(t, cache.ExactHit, finished.Match)
	assert.Equal(t, 100.0, finished.Score)
}

func TestRun_EmptyClipboardProducesNothing(t *testing.T) {
	c := newTestCache(t)
	client := &fakeClient{chunks: []string{"x"}}
	rec := &Recorder{}
	p := New(c, client, rec, testOptions())

	var reads int
	id := p.Run(context.Background(), func() (string, error) {
		reads++
		return "", nil
	})

	assert.Empty(t, id)
	assert.Equal(t, 5, reads)
	assert.Empty(t, rec.Events())
	assert.Zero(t, client.calls.Load())

	records, err := c.RecentHistory(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRun_WhitespaceOnlyProducesNothing(t *testing.T) {
	rec := &Recorder{}
	p := New(newTestCache(t), &fakeClient{}, rec, testOptions())

	assert.Empty(t, p.Run(context.Background(), fixedText(" \n\t ")))
	assert.Empty(t, rec.Events())
}

func TestRun_RetriesUntilClipboardReady(t *testing.T) {
	rec := &Recorder{}
	client := &fakeClient{chunks: []string{"tamam"}}
	p := New(newTestCache(t), client, rec, testOptions())

	var reads int
	p.Run(context.Background(), func() (string, error) {
		reads++
		switch reads {
		case 1:
			return "", errors.New("clipboard locked")
		case 2:
			return "", nil
		default:
			return "ok", nil
		}
	})

	assert.Equal(t, 3, reads)
	assert.Equal(t, int32(1), client.calls.Load())
	assert.Contains(t, rec.Kinds(), EventFinished)
}

func TestRun_EngineErrorNotCached(t *testing.T) {
	c := newTestCache(t)
	client := &fakeClient{chunks: []string{"Yarım"}, err: errors.New("connection reset")}
	rec := &Recorder{}
	p := New(c, client, rec, testOptions())
	ctx := context.Background()

	p.Run(ctx, fixedText("Half a sentence"))

	assert.Equal(t, []EventKind{EventLoading, EventSourceKnown, EventChunk, EventError, EventFinished}, rec.Kinds())
	events := rec.Events()
	assert.Equal(t, "Error: connection reset", events[3].Text)
	assert.Equal(t, "Yarım", events[4].Text)

	assert.Equal(t, cache.Miss, c.Lookup(ctx, "Half a sentence", "Academic").Kind)
}

func TestRun_FuzzyHitCarriesScore(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	c.Upsert(ctx, "The quick brown fox jumps over the lazy dog.", "Hızlı kahverengi tilki tembel köpeğin üzerinden atlar.", "Academic")

	client := &fakeClient{}
	rec := &Recorder{}
	p := New(c, client, rec, testOptions())
	p.Run(ctx, fixedText("The quick brown fox jumps over the lazy dog"))

	assert.Zero(t, client.calls.Load())
	require.Equal(t, []EventKind{EventLoading, EventFinished}, rec.Kinds())
	finished := rec.Events()[1]
	assert.Equal(t, cache.FuzzyHit, finished.Match)
	assert.True(t, finished.Cached())
	assert.GreaterOrEqual(t, finished.Score, cache.DefaultThreshold)
}

func TestRun_PanicBecomesError(t *testing.T) {
	rec := &Recorder{}
	p := New(panicCache{}, &fakeClient{}, rec, testOptions())

	var id string
	require.NotPanics(t, func() {
		id = p.Run(context.Background(), fixedText("boom"))
	})

	kinds := rec.Kinds()
	require.Equal(t, []EventKind{EventLoading, EventError}, kinds)
	events := rec.Events()
	assert.Equal(t, id, events[1].Activation)
	assert.Contains(t, events[1].Text, "index corrupted")
}

func TestRun_CancelledContextStopsAcquire(t *testing.T) {
	rec := &Recorder{}
	p := New(newTestCache(t), &fakeClient{}, rec, Options{Attempts: 100, Interval: DefaultInterval})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, p.Run(ctx, fixedText("")))
	assert.Empty(t, rec.Events())
}

func TestGo_ConcurrentActivations(t *testing.T) {
	c := newTestCache(t)
	client := &fakeClient{chunks: []string{"çeviri"}}
	rec := &Recorder{}
	p := New(c, client, rec, testOptions())
	ctx := context.Background()

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		p.Go(ctx, fixedText(text))
	}
	p.Wait()

	finished := 0
	for _, e := range rec.Events() {
		if e.Kind == EventFinished {
			finished++
		}
	}
	assert.Equal(t, len(texts), finished)

	for _, text := range texts {
		assert.Equal(t, cache.ExactHit, c.Lookup(ctx, text, "Academic").Kind, text)
	}
}

func TestChannelDispatch(t *testing.T) {
	ch := NewChannel(8)
	ch.OnLoadingStarted("a")
	ch.OnSourceKnown("a", "Hello")
	ch.OnChunk("a", "Mer")
	ch.OnFinished("a", Result{Text: "Merhaba"})

	ctx, cancel := context.WithCancel(context.Background())
	rec := &Recorder{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch.Dispatch(ctx, EventFunc(func(e Event) {
			Deliver(rec, e)
			if e.Kind == EventFinished {
				cancel()
			}
		}))
	}()
	wg.Wait()

	assert.Equal(t, []EventKind{EventLoading, EventSourceKnown, EventChunk, EventFinished}, rec.Kinds())
	assert.Equal(t, "Merhaba", rec.Events()[3].Text)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b}

	m.OnLoadingStarted("x")
	m.OnError("x", "Error: boom")

	for _, r := range []*Recorder{a, b} {
		assert.Equal(t, []EventKind{EventLoading, EventError}, r.Kinds())
	}
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "chunk", EventChunk.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}

func TestChannelClose_ReleasesBlockedActivations(t *testing.T) {
	c := newTestCache(t)
	ch := NewChannel(2)
	client := &fakeClient{chunks: []string{"a", "b", "c", "d"}}
	p := New(c, client, ch, testOptions())
	ctx := context.Background()

	// Nothing drains the queue, so the activation fills it and blocks
	p.Go(ctx, fixedText("Hello"))
	ch.Close()

	waited := make(chan struct{})
	go func() {
		p.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("activation still blocked after Close")
	}

	assert.Equal(t, cache.ExactHit, c.Lookup(ctx, "Hello", "Academic").Kind)
}

func TestChannelDispatch_DrainsOnClose(t *testing.T) {
	ch := NewChannel(4)
	ch.OnLoadingStarted("a")
	ch.OnFinished("a", Result{Text: "bitti"})
	ch.Close()

	rec := &Recorder{}
	ch.Dispatch(context.Background(), rec)

	assert.Equal(t, []EventKind{EventLoading, EventFinished}, rec.Kinds())

	ch.OnChunk("a", "late")
	assert.Len(t, rec.Events(), 2)
}

func TestRun_PersistsWhenContextCancelledAfterStream(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{chunks: []string{"tamam"}}
	p := New(c, client, EventFunc(func(e Event) {
		if e.Kind == EventFinished {
			cancel()
		}
	}), testOptions())

	p.Run(ctx, fixedText("done"))

	assert.Equal(t, cache.ExactHit, c.Lookup(context.Background(), "done", "Academic").Kind)
}
