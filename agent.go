package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"markestedt/cliptrans/cache"
	"markestedt/cliptrans/config"
	"markestedt/cliptrans/hotkey"
	"markestedt/cliptrans/notify"
	"markestedt/cliptrans/pipeline"
	"markestedt/cliptrans/platform"
	"markestedt/cliptrans/storage"
	"markestedt/cliptrans/translate"
	"markestedt/cliptrans/web"
)

// eventQueueSize bounds pipeline events waiting for the presentation loop
const eventQueueSize = 256

// Agent coordinates hotkey detection, capture and presentation. It runs
// three concurrency domains: the key listener, one goroutine per
// activation, and a single presentation loop that owns every sink.
type Agent struct {
	cfg       *config.Config
	keys      platform.KeySource
	clipboard platform.Clipboard
	detector  *hotkey.Detector
	client    translate.StreamingClient
	pipeline  *pipeline.Pipeline
	events    *pipeline.Channel
	sinks     pipeline.Multi
	web       *web.Server
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config, db *storage.DB) (*Agent, error) {
	client, err := translate.NewClient(cfg.Translation, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}

	key := platform.CanonicalKey(cfg.Hotkey.Key)
	if _, err := platform.VKCode(key); err != nil {
		return nil, fmt.Errorf("failed to parse hotkey: %w", err)
	}
	cancelKey := platform.CanonicalKey(cfg.Hotkey.CancelModifier)

	a := &Agent{
		cfg:       cfg,
		keys:      platform.NewKeySource(),
		clipboard: platform.NewClipboard(),
		detector:  hotkey.NewDetector(key, cancelKey, cfg.Hotkey.DetectWindow()),
		client:    client,
		events:    pipeline.NewChannel(eventQueueSize),
		sinks:     pipeline.Multi{logSink{}},
	}

	if cfg.Web.Enabled {
		a.web = web.NewServer(db, cfg)
		a.sinks = append(a.sinks, a.web.Sink())
	}
	if cfg.Notify.Enabled {
		a.sinks = append(a.sinks, notify.New())
	}

	tc := cache.New(db, cache.Options{Fuzzy: cfg.Cache.Fuzzy, Threshold: cfg.Cache.Threshold})
	a.pipeline = pipeline.New(tc, client, a.events, pipeline.Options{
		Attempts: cfg.Capture.Attempts,
		Interval: cfg.Capture.Interval(),
		Style:    cfg.Translation.Style,
	})

	return a, nil
}

// DashboardURL returns the web UI address, or "" when it is disabled
func (a *Agent) DashboardURL() string {
	if a.web == nil {
		return ""
	}
	return a.web.URL()
}

// Run starts the agent's main event loop
func (a *Agent) Run(ctx context.Context) error {
	keyEvents, err := a.keys.Listen(ctx)
	if err != nil {
		return fmt.Errorf("failed to start keyboard listener: %w", err)
	}

	// The presentation loop outlives ctx so in-flight activations can
	// still report how they ended
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		a.events.Dispatch(context.Background(), a.sinks)
	}()
	go translate.KeepAlive(ctx, a.client, a.cfg.Translation.KeepaliveInterval())

	if a.web != nil {
		go func() {
			if err := a.web.Start(); err != nil {
				slog.Error("Web server error", "error", err)
			}
		}()
	}

	slog.Info("cliptrans started",
		"hotkey", a.cfg.Hotkey.Key,
		"window", a.cfg.Hotkey.DetectWindow(),
		"provider", a.client.Name(),
		"style", a.pipeline.Style(),
	)

	// Blocks until ctx is done or the hook goes away
	a.detector.Run(ctx, keyEvents, func() {
		slog.Debug("Double press detected")
		a.pipeline.Go(ctx, a.clipboard.Get)
	})

	// Workers must finish before the caller closes the database
	a.pipeline.Wait()
	a.events.Close()
	<-dispatched

	a.shutdown()
	if ctx.Err() == nil {
		return errors.New("keyboard listener stopped")
	}
	return nil
}

func (a *Agent) shutdown() {
	if a.web == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.web.Shutdown(ctx); err != nil {
		slog.Warn("Failed to stop web server", "error", err)
	}
}

// logSink writes pipeline events to the default logger
type logSink struct{}

func (logSink) OnLoadingStarted(id string) {
	slog.Debug("Translation started", "activation", id)
}

func (logSink) OnSourceKnown(id, text string) {
	slog.Info("Translating", "activation", id, "chars", len(text))
}

func (logSink) OnChunk(string, string) {}

func (logSink) OnFinished(id string, r pipeline.Result) {
	slog.Info("Translation delivered", "activation", id, "match", r.Match, "score", r.Score, "chars", len(r.Text))
}

func (logSink) OnError(id, message string) {
	slog.Error("Translation failed", "activation", id, "error", message)
}
