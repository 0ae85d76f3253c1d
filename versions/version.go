// Package versions keeps the history of page block data. Every save produces a
// new record keyed by its Unix-millisecond timestamp; records are never
// rewritten, and a rollback is a new save of an older record's blocks.
package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("version not found")
	ErrInvalidSlug = errors.New("invalid slug")
	ErrNoBlocks    = errors.New("blocks are required")
	ErrNoFreeSlot  = errors.New("no free version timestamp")
)

// DefaultRoot is where versions live, both on disk and inside site repositories.
const DefaultRoot = "public/data/versions"

type Record struct {
	Slug   string          `json:"slug"`
	Blocks json.RawMessage `json:"blocks"`
	TS     int64           `json:"ts"`
}

type Summary struct {
	ID int64 `json:"id"`
	TS int64 `json:"ts"`
}

type Store interface {
	Name() string
	Save(ctx context.Context, slug string, blocks json.RawMessage) (Record, error)
	List(ctx context.Context, slug string) ([]Summary, error)
	Get(ctx context.Context, slug string, ts int64) (Record, error)
}

type Clock func() time.Time

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

func validateBlocks(blocks json.RawMessage) error {
	trimmed := strings.TrimSpace(string(blocks))
	if trimmed == "" || trimmed == "null" || !json.Valid(blocks) {
		return ErrNoBlocks
	}
	return nil
}

// Rollback restores an older version by saving its blocks as the newest one.
func Rollback(ctx context.Context, store Store, slug string, ts int64) (Record, error) {
	old, err := store.Get(ctx, slug, ts)
	if err != nil {
		return Record{}, err
	}

	return store.Save(ctx, slug, old.Blocks)
}

func fileName(ts int64) string {
	return strconv.FormatInt(ts, 10) + ".json"
}

func parseFileName(name string) (int64, bool) {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return 0, false
	}

	ts, err := strconv.ParseInt(base, 10, 64)
	if err != nil || ts <= 0 {
		return 0, false
	}
	return ts, true
}

func summaries(timestamps []int64) []Summary {
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] > timestamps[j] })

	list := make([]Summary, 0, len(timestamps))
	for _, ts := range timestamps {
		list = append(list, Summary{ID: ts, TS: ts})
	}
	return list
}

// sequencer hands out per-slug timestamps that never repeat within a process,
// even when the clock stalls or steps back.
type sequencer struct {
	mu   sync.Mutex
	now  Clock
	last map[string]int64
}

func newSequencer(now Clock) *sequencer {
	if now == nil {
		now = time.Now
	}
	return &sequencer{now: now, last: make(map[string]int64)}
}

func (s *sequencer) next(slug string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if last, ok := s.last[slug]; ok && ts <= last {
		ts = last + 1
	}
	s.last[slug] = ts
	return ts
}

// bump records that ts is taken and returns the next candidate after it.
func (s *sequencer) bump(slug string, ts int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := ts + 1
	if last := s.last[slug]; next <= last {
		next = last + 1
	}
	s.last[slug] = next
	return next
}
