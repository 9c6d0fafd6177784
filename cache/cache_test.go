package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/cliptrans/storage"
)

func newTestCache(t *testing.T, fuzzy bool) *Cache {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, Options{Fuzzy: fuzzy, Threshold: DefaultThreshold})
}

// failingStore fails every call
type failingStore struct {
	upserts int
}

var errStore = errors.New("disk on fire")

func (s *failingStore) UpsertTranslation(context.Context, string, string, string) error {
	s.upserts++
	return errStore
}

func (s *failingStore) FindTranslation(context.Context, string, string) (*storage.Record, error) {
	return nil, errStore
}

func (s *failingStore) TranslationsByStyle(context.Context, string) ([]storage.Record, error) {
	return nil, errStore
}

func (s *failingStore) RecentHistory(context.Context, int) ([]storage.Record, error) {
	return nil, errStore
}

func (s *failingStore) ClearHistory(context.Context) (int64, error) {
	return 0, errStore
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100.0, Ratio("", ""))
	assert.Equal(t, 100.0, Ratio("Hello world", "Hello world"))
	assert.Equal(t, 0.0, Ratio("abc", ""))
	assert.InDelta(t, 61.538, Ratio("kitten", "sitting"), 0.01)
	assert.InDelta(t, 95.652, Ratio("Hello world", "Hello world!"), 0.01)
	assert.Equal(t, Ratio("abcd", "abed"), Ratio("abed", "abcd"))

	// Scores count characters, not UTF-8 bytes
	assert.InDelta(t, 80.0, Ratio("dünya", "dunya"), 0.001)
	assert.InDelta(t, 87.5, Ratio("今日はいい天気だ", "今日はいい天気よ"), 0.001)
	assert.Equal(t, 100.0, Ratio("Kaygı", "Kaygı"))
}

func TestLookup_MultibyteScoredByCharacter(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Upsert(ctx, "今日はいい天気だ", "Bugün hava güzel.", "Academic")

	// 7 of 8 characters shared: 87.5, below the default threshold
	res := c.Lookup(ctx, "今日はいい天気よ", "Academic")
	assert.Equal(t, Miss, res.Kind)

	res = c.LookupWithThreshold(ctx, "今日はいい天気よ", "Academic", 85)
	require.Equal(t, FuzzyHit, res.Kind)
	assert.InDelta(t, 87.5, res.Score, 0.001)
}

func TestLookup_ExactAfterUpsert(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Upsert(ctx, "Hello world", "Merhaba dünya", "Academic")

	res := c.Lookup(ctx, "Hello world", "Academic")
	require.Equal(t, ExactHit, res.Kind)
	require.True(t, res.Hit())
	assert.Equal(t, "Merhaba dünya", res.Record.Translation)
	assert.Equal(t, 100.0, res.Score)
}

func TestLookup_FuzzyHit(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Upsert(ctx, "The quick brown fox jumps over the lazy dog.", "Hızlı kahverengi tilki tembel köpeğin üzerinden atlar.", "Academic")
	c.Upsert(ctx, "Completely unrelated sentence about databases.", "Veritabanları hakkında alakasız bir cümle.", "Academic")

	res := c.Lookup(ctx, "The quick brown fox jumps over the lazy dog", "Academic")
	require.Equal(t, FuzzyHit, res.Kind)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", res.Record.OriginalText)
	assert.GreaterOrEqual(t, res.Score, DefaultThreshold)
	assert.Less(t, res.Score, 100.0)
}

func TestLookup_FuzzyMissWhenDifferent(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Upsert(ctx, "The quick brown fox jumps over the lazy dog.", "Hızlı kahverengi tilki.", "Academic")

	res := c.Lookup(ctx, "A slow green turtle sleeps under the tree.", "Academic")
	assert.Equal(t, Miss, res.Kind)
	assert.False(t, res.Hit())
	assert.Nil(t, res.Record)
}

func TestLookup_FuzzyIsStyleScoped(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Upsert(ctx, "Hello world", "Selam dünya", "Casual")

	res := c.Lookup(ctx, "Hello world!", "Academic")
	assert.Equal(t, Miss, res.Kind)

	res = c.Lookup(ctx, "Hello world!", "Casual")
	assert.Equal(t, FuzzyHit, res.Kind)
}

func TestLookup_CustomThreshold(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Upsert(ctx, "kitten", "yavru kedi", "Academic")

	assert.Equal(t, Miss, c.Lookup(ctx, "sitting", "Academic").Kind)
	res := c.LookupWithThreshold(ctx, "sitting", "Academic", 60)
	assert.Equal(t, FuzzyHit, res.Kind)
}

func TestLookup_FuzzyDisabled(t *testing.T) {
	c := newTestCache(t, false)
	ctx := context.Background()
	assert.False(t, c.SupportsFuzzyMatch())

	c.Upsert(ctx, "Hello world", "Merhaba dünya", "Academic")

	assert.Equal(t, Miss, c.Lookup(ctx, "Hello world!", "Academic").Kind)
	assert.Equal(t, ExactHit, c.Lookup(ctx, "Hello world", "Academic").Kind)
}

func TestUpsert_IgnoresEmpty(t *testing.T) {
	store := &failingStore{}
	c := New(store, Options{})

	c.Upsert(context.Background(), "", "x", "Academic")
	c.Upsert(context.Background(), "x", "", "Academic")
	assert.Equal(t, 0, store.upserts)
}

func TestStorageErrorsDegrade(t *testing.T) {
	store := &failingStore{}
	c := New(store, Options{Fuzzy: true})
	ctx := context.Background()

	assert.Equal(t, Miss, c.Lookup(ctx, "Hello", "Academic").Kind)

	assert.NotPanics(t, func() { c.Upsert(ctx, "Hello", "Merhaba", "Academic") })
	assert.Equal(t, 1, store.upserts)

	_, err := c.Clear(ctx)
	assert.ErrorIs(t, err, errStore)
}

func TestNew_ThresholdDefault(t *testing.T) {
	assert.Equal(t, DefaultThreshold, New(&failingStore{}, Options{}).Threshold())
	assert.Equal(t, DefaultThreshold, New(&failingStore{}, Options{Threshold: 150}).Threshold())
	assert.Equal(t, 75.0, New(&failingStore{}, Options{Threshold: 75}).Threshold())
}

func TestRecentHistoryAndClear(t *testing.T) {
	c := newTestCache(t, true)
	ctx := context.Background()

	c.Upsert(ctx, "one", "bir", "Academic")
	c.Upsert(ctx, "two", "iki", "Academic")

	records, err := c.RecentHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, Miss, c.Lookup(ctx, "one", "Academic").Kind)
}
