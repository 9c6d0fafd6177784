package translate

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"markestedt/cliptrans/config"
	"markestedt/cliptrans/storage"
)

// OpenAIClient streams chat completions from an OpenAI-compatible endpoint
type OpenAIClient struct {
	client         openai.Client
	provider       string
	model          string
	targetLanguage string
	temperature    float64
	glossary       GlossarySource
}

// NewOpenAIClient creates a new OpenAI-compatible streaming client
func NewOpenAIClient(cfg config.TranslationConfig, glossary GlossarySource) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	return &OpenAIClient{
		client:         openai.NewClient(opts...),
		provider:       cfg.Provider,
		model:          model,
		targetLanguage: cfg.TargetLanguage,
		temperature:    cfg.Temperature,
		glossary:       glossary,
	}
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	if c.provider == "" {
		return "openai"
	}
	return c.provider
}

// Warmup opens a connection to the endpoint ahead of the first translation
func (c *OpenAIClient) Warmup(ctx context.Context) {
	start := time.Now()
	if err := c.ping(ctx); err != nil {
		slog.Warn("Engine warmup failed", "provider", c.Name(), "error", err)
		return
	}
	slog.Info("Engine warmed up", "provider", c.Name(), "model", c.model, "latency", time.Since(start))
}

// Keepalive issues a cheap request so the pooled connection stays open
func (c *OpenAIClient) Keepalive(ctx context.Context) {
	if err := c.ping(ctx); err != nil {
		slog.Debug("Engine keepalive failed", "provider", c.Name(), "error", err)
	}
}

func (c *OpenAIClient) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.client.Models.List(ctx)
	return err
}

// Stream translates req.Text, yielding content deltas as they arrive
func (c *OpenAIClient) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(BuildSystemPrompt(c.targetLanguage, req.Style, c.terms(ctx))),
				openai.UserMessage(req.Text),
			},
			Temperature: openai.Float(c.temperature),
		}

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			slog.Error("Engine stream failed", "provider", c.Name(), "error", err)
			yield(ErrorText(err), err)
		}
	}
}

func (c *OpenAIClient) terms(ctx context.Context) []storage.Term {
	if c.glossary == nil {
		return nil
	}
	terms, err := c.glossary.ListTerms(ctx)
	if err != nil {
		slog.Warn("Failed to load glossary", "error", err)
		return nil
	}
	return terms
}
