package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore writes one JSON file per version under <dir>/<slug>/<ts>.json.
type FileStore struct {
	dir string
	seq *sequencer
}

func NewFileStore(dir string, now Clock) *FileStore {
	if dir == "" {
		dir = DefaultRoot
	}
	return &FileStore{dir: dir, seq: newSequencer(now)}
}

func (s *FileStore) Name() string {
	return "fs"
}

func (s *FileStore) slugDir(slug string) string {
	return filepath.Join(s.dir, slug)
}

func (s *FileStore) Save(ctx context.Context, slug string, blocks json.RawMessage) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}
	if err := validateBlocks(blocks); err != nil {
		return Record{}, err
	}

	dir := s.slugDir(slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("[VERSIONS] creating %s: %w", dir, err)
	}

	ts := s.seq.next(slug)
	for {
		if err := ctx.Err(); err != nil {
			return Record{}, err
		}

		record := Record{Slug: slug, Blocks: blocks, TS: ts}
		err := s.create(filepath.Join(dir, fileName(ts)), record)
		if errors.Is(err, fs.ErrExist) {
			ts = s.seq.bump(slug, ts)
			continue
		}
		if err != nil {
			return Record{}, err
		}

		return record, nil
	}
}

func (s *FileStore) create(path string, record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("[VERSIONS] encoding %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("[VERSIONS] writing %s: %w", path, err)
	}

	return nil
}

func (s *FileStore) List(ctx context.Context, slug string) ([]Summary, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.slugDir(slug))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("[VERSIONS] listing %s: %w", slug, err)
	}

	var timestamps []int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ts, ok := parseFileName(entry.Name()); ok {
			timestamps = append(timestamps, ts)
		}
	}

	return summaries(timestamps), nil
}

func (s *FileStore) Get(ctx context.Context, slug string, ts int64) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.slugDir(slug), fileName(ts)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("[VERSIONS] reading %s/%d: %w", slug, ts, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("[VERSIONS] decoding %s/%d: %w", slug, ts, err)
	}

	return record, nil
}
