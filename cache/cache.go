// Package cache answers translation requests from stored history before
// the engine is called. Lookups try an exact (text, style) match first and
// fall back to the closest stored text of the same style.
package cache

import (
	"context"
	"log/slog"

	"markestedt/cliptrans/storage"
)

// DefaultThreshold is the minimum similarity score for a fuzzy hit.
const DefaultThreshold = 90.0

// MatchKind identifies which lookup strategy produced a result
type MatchKind int

const (
	Miss MatchKind = iota
	ExactHit
	FuzzyHit
)

func (k MatchKind) String() string {
	switch k {
	case ExactHit:
		return "exact"
	case FuzzyHit:
		return "fuzzy"
	default:
		return "miss"
	}
}

// Result is the outcome of a lookup. Record is nil for a Miss. Score is
// 100 for exact hits.
type Result struct {
	Kind   MatchKind
	Record *storage.Record
	Score  float64
}

// Hit reports whether the result carries a cached translation
func (r Result) Hit() bool {
	return r.Kind != Miss && r.Record != nil
}

// Store is the persistence the cache reads and writes
type Store interface {
	UpsertTranslation(ctx context.Context, original, translation, style string) error
	FindTranslation(ctx context.Context, original, style string) (*storage.Record, error)
	TranslationsByStyle(ctx context.Context, style string) ([]storage.Record, error)
	RecentHistory(ctx context.Context, limit int) ([]storage.Record, error)
	ClearHistory(ctx context.Context) (int64, error)
}

// Options configures a Cache
type Options struct {
	// Fuzzy enables nearest-match lookup after an exact miss
	Fuzzy bool
	// Threshold is the default minimum score for fuzzy hits (0-100)
	Threshold float64
}

// Cache is the two-tier translation cache. It is safe for concurrent use
// as long as the underlying Store is.
type Cache struct {
	store     Store
	fuzzy     bool
	threshold float64
}

// New creates a cache over store
func New(store Store, opts Options) *Cache {
	threshold := opts.Threshold
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return &Cache{
		store:     store,
		fuzzy:     opts.Fuzzy,
		threshold: threshold,
	}
}

// SupportsFuzzyMatch reports whether lookups fall back to nearest-match
func (c *Cache) SupportsFuzzyMatch() bool {
	return c.fuzzy
}

// Threshold returns the default fuzzy threshold
func (c *Cache) Threshold() float64 {
	return c.threshold
}

// Lookup finds a cached translation for text using the default threshold
func (c *Cache) Lookup(ctx context.Context, text, style string) Result {
	return c.LookupWithThreshold(ctx, text, style, c.threshold)
}

// LookupWithThreshold finds a cached translation for text. Storage
// errors degrade to a Miss.
func (c *Cache) LookupWithThreshold(ctx context.Context, text, style string, threshold float64) Result {
	if text == "" {
		return Result{Kind: Miss}
	}

	rec, err := c.store.FindTranslation(ctx, text, style)
	if err != nil {
		slog.Error("Cache exact lookup failed", "error", err)
		return Result{Kind: Miss}
	}
	if rec != nil {
		return Result{Kind: ExactHit, Record: rec, Score: 100}
	}

	if !c.fuzzy {
		return Result{Kind: Miss}
	}

	candidates, err := c.store.TranslationsByStyle(ctx, style)
	if err != nil {
		slog.Error("Cache fuzzy lookup failed", "error", err)
		return Result{Kind: Miss}
	}

	var best *storage.Record
	bestScore := -1.0
	for i := range candidates {
		cand := &candidates[i]
		score := Ratio(text, cand.OriginalText)
		if score > bestScore || (score == bestScore && best != nil && cand.CreatedAt.After(best.CreatedAt)) {
			best = cand
			bestScore = score
		}
	}

	if best == nil || bestScore < threshold {
		return Result{Kind: Miss}
	}

	slog.Debug("Fuzzy cache hit", "score", bestScore, "original", best.OriginalText)
	return Result{Kind: FuzzyHit, Record: best, Score: bestScore}
}

// Upsert records a finished translation. Empty inputs are ignored and
// storage failures are logged, never returned.
func (c *Cache) Upsert(ctx context.Context, original, translation, style string) {
	if original == "" || translation == "" {
		return
	}
	if err := c.store.UpsertTranslation(ctx, original, translation, style); err != nil {
		slog.Error("Failed to cache translation", "error", err)
	}
}

// RecentHistory returns up to limit records, newest first
func (c *Cache) RecentHistory(ctx context.Context, limit int) ([]storage.Record, error) {
	return c.store.RecentHistory(ctx, limit)
}

// Clear irreversibly deletes every cached translation
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	n, err := c.store.ClearHistory(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("Translation history cleared", "records", n)
	return n, nil
}
