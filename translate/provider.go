// Package translate binds the capture pipeline to a streaming translation engine.
package translate

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"markestedt/cliptrans/config"
)

// ErrNoAPIKey is returned when a hosted provider is configured without a key
var ErrNoAPIKey = errors.New("api key is required")

// ErrorPrefix marks engine failures delivered as text
const ErrorPrefix = "Error: "

// Request is one translation job
type Request struct {
	Text  string
	Style string
}

// StreamingClient produces translations incrementally
type StreamingClient interface {
	Name() string
	// Warmup primes the connection. Best effort; failures are logged.
	Warmup(ctx context.Context)
	// Keepalive keeps an idle connection from being torn down. Best effort.
	Keepalive(ctx context.Context)
	// Stream yields non-empty fragments of the translation. On failure it
	// yields one final pair whose fragment is ErrorText(err) and whose
	// error is non-nil, then stops. The sequence is single-use.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// ErrorText renders an engine failure as user-facing text
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	return ErrorPrefix + err.Error()
}

// NewClient creates a streaming client based on configuration
func NewClient(cfg config.TranslationConfig, glossary GlossarySource) (StreamingClient, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider: %w (set api_key or OPENAI_API_KEY)", ErrNoAPIKey)
		}
		return NewOpenAIClient(cfg, glossary), nil
	case "ollama":
		// Ollama serves an OpenAI-compatible API and ignores the key
		if cfg.APIKey == "" {
			cfg.APIKey = "ollama"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434/v1/"
		}
		return NewOpenAIClient(cfg, glossary), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
