package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"sitewise-backend/github"
)

// maxCommitAttempts bounds how often Save moves to the next millisecond when
// the target file already exists in the repository.
const maxCommitAttempts = 3

// GithubStore commits versions to a site repository through the Contents API.
// It is bound to a single token and is meant to be built per request.
type GithubStore struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	root   string
	seq    *sequencer
}

func NewGithubStore(client *github.Client, owner, repo, branch string, now Clock) *GithubStore {
	return &GithubStore{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: branch,
		root:   DefaultRoot,
		seq:    newSequencer(now),
	}
}

func (s *GithubStore) Name() string {
	return "github"
}

func (s *GithubStore) filePath(slug string, ts int64) string {
	return path.Join(s.root, slug, fileName(ts))
}

func (s *GithubStore) Save(ctx context.Context, slug string, blocks json.RawMessage) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}
	if err := validateBlocks(blocks); err != nil {
		return Record{}, err
	}

	ts := s.seq.next(slug)
	for attempt := 1; ; attempt++ {
		record := Record{Slug: slug, Blocks: blocks, TS: ts}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return Record{}, fmt.Errorf("[VERSIONS] encoding %s/%d: %w", slug, ts, err)
		}

		_, err = s.client.PutContent(ctx, s.owner, s.repo, s.filePath(slug, ts), github.PutContentRequest{
			Message: fmt.Sprintf("Save version %d of %s", ts, slug),
			Content: data,
			Branch:  s.branch,
		})
		if err == nil {
			return record, nil
		}

		// Without a sha GitHub answers 422 when the path is already taken.
		var apiErr *github.APIError
		if attempt < maxCommitAttempts && errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			ts = s.seq.bump(slug, ts)
			continue
		}
		return Record{}, err
	}
}

func (s *GithubStore) List(ctx context.Context, slug string) ([]Summary, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	entries, err := s.client.ListDirectory(ctx, s.owner, s.repo, path.Join(s.root, slug), s.branch)
	if err != nil {
		if github.IsNotFound(err) {
			return []Summary{}, nil
		}
		return nil, err
	}

	var timestamps []int64
	for _, entry := range entries {
		if entry.Type != "" && entry.Type != "file" {
			continue
		}
		if ts, ok := parseFileName(entry.Name); ok {
			timestamps = append(timestamps, ts)
		}
	}

	return summaries(timestamps), nil
}

func (s *GithubStore) Get(ctx context.Context, slug string, ts int64) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}

	file, err := s.client.GetContent(ctx, s.owner, s.repo, s.filePath(slug, ts), s.branch)
	if err != nil {
		if github.IsNotFound(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	data, err := file.Decoded()
	if err != nil {
		return Record{}, fmt.Errorf("[VERSIONS] decoding %s: %w", file.Path, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("[VERSIONS] decoding %s: %w", file.Path, err)
	}

	return record, nil
}
