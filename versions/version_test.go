package versions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(ms int64) Clock {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestValidateSlug(t *testing.T) {
	for _, slug := range []string{"home", "about-us", "Blog_2024", "a"} {
		assert.NoError(t, ValidateSlug(slug), slug)
	}

	for _, slug := range []string{"", "../etc", "a/b", "-lead", "with space", "dots.json"} {
		assert.ErrorIs(t, ValidateSlug(slug), ErrInvalidSlug, slug)
	}
}

func TestValidateBlocks(t *testing.T) {
	assert.NoError(t, validateBlocks(json.RawMessage(`[]`)))
	assert.NoError(t, validateBlocks(json.RawMessage(`{"content":[]}`)))
	assert.ErrorIs(t, validateBlocks(nil), ErrNoBlocks)
	assert.ErrorIs(t, validateBlocks(json.RawMessage(`null`)), ErrNoBlocks)
	assert.ErrorIs(t, validateBlocks(json.RawMessage(`{broken`)), ErrNoBlocks)
}

func TestParseFileName(t *testing.T) {
	ts, ok := parseFileName("1700000000000.json")
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000000), ts)

	for _, name := range []string{"rollback.json", "1700.txt", "-5.json", ".json"} {
		_, ok := parseFileName(name)
		assert.False(t, ok, name)
	}
}

func TestSummariesSortDescending(t *testing.T) {
	list := summaries([]int64{2, 30, 10})

	assert.Equal(t, []Summary{{ID: 30, TS: 30}, {ID: 10, TS: 10}, {ID: 2, TS: 2}}, list)
	assert.NotNil(t, summaries(nil))
}

func TestSequencerNeverRepeats(t *testing.T) {
	seq := newSequencer(fixedClock(100))

	assert.Equal(t, int64(100), seq.next("home"))
	assert.Equal(t, int64(101), seq.next("home"))
	assert.Equal(t, int64(100), seq.next("about"))
	assert.Equal(t, int64(102), seq.bump("home", 101))
	assert.Equal(t, int64(103), seq.next("home"))
}
