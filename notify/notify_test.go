package notify

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/cliptrans/cache"
	"markestedt/cliptrans/pipeline"
)

type shown struct {
	title, message string
}

func newRecordingSink(err error) (*Sink, *[]shown) {
	var got []shown
	return NewWithFunc(func(title, message string) error {
		got = append(got, shown{title, message})
		return err
	}), &got
}

func TestSink_OnlyFinalEventsNotify(t *testing.T) {
	s, got := newRecordingSink(nil)

	s.OnLoadingStarted("a")
	s.OnSourceKnown("a", "Hello")
	s.OnChunk("a", "Mer")
	assert.Empty(t, *got)

	s.OnFinished("a", pipeline.Result{Text: "Merhaba", Match: cache.Miss})
	s.OnError("b", "Error: timeout")

	require.Len(t, *got, 2)
	assert.Equal(t, shown{"cliptrans", "Merhaba"}, (*got)[0])
	assert.Equal(t, shown{"cliptrans failed", "Error: timeout"}, (*got)[1])
}

func TestSink_CachedTitle(t *testing.T) {
	s, got := newRecordingSink(nil)

	s.OnFinished("a", pipeline.Result{Text: "Merhaba", Match: cache.FuzzyHit, Score: 92.4})

	require.Len(t, *got, 1)
	assert.Equal(t, "cliptrans (cached, fuzzy 92%)", (*got)[0].title)
}

func TestSink_SkipsEmptyAndTruncates(t *testing.T) {
	s, got := newRecordingSink(errors.New("no notification daemon"))

	s.OnFinished("a", pipeline.Result{})
	assert.Empty(t, *got)

	long := strings.Repeat("ğ", 500)
	assert.NotPanics(t, func() { s.OnFinished("b", pipeline.Result{Text: long}) })
	require.Len(t, *got, 1)
	assert.Equal(t, maxBody, utf8.RuneCountInString((*got)[0].message))
	assert.True(t, strings.HasSuffix((*got)[0].message, "…"))
}
