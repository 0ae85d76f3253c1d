package versions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// MinioStore keeps versions as objects <prefix>/<slug>/<ts>.json in a bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
	seq    *sequencer
}

func NewMinioStore(client *minio.Client, bucket string, now Clock) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, prefix: "versions", seq: newSequencer(now)}
}

func (s *MinioStore) Name() string {
	return "minio"
}

func (s *MinioStore) objectName(slug string, ts int64) string {
	return path.Join(s.prefix, slug, fileName(ts))
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *MinioStore) Save(ctx context.Context, slug string, blocks json.RawMessage) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}
	if err := validateBlocks(blocks); err != nil {
		return Record{}, err
	}

	ts, err := s.freeSlot(ctx, slug)
	if err != nil {
		return Record{}, err
	}

	record := Record{Slug: slug, Blocks: blocks, TS: ts}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("[MINIO] encoding %s/%d: %w", slug, ts, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.objectName(slug, ts), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return Record{}, fmt.Errorf("[MINIO] uploading %s: %w", s.objectName(slug, ts), err)
	}

	return record, nil
}

// freeSlot returns the first candidate timestamp with no object behind it.
// Objects are never overwritten: when every candidate is taken Save fails.
func (s *MinioStore) freeSlot(ctx context.Context, slug string) (int64, error) {
	ts := s.seq.next(slug)
	for attempt := 1; ; attempt++ {
		_, err := s.client.StatObject(ctx, s.bucket, s.objectName(slug, ts), minio.StatObjectOptions{})
		if err != nil {
			if isNoSuchKey(err) {
				return ts, nil
			}
			return 0, fmt.Errorf("[MINIO] checking %s: %w", s.objectName(slug, ts), err)
		}

		if attempt == maxCommitAttempts {
			return 0, fmt.Errorf("[MINIO] %s/%d: %w", slug, ts, ErrNoFreeSlot)
		}
		ts = s.seq.bump(slug, ts)
	}
}

func (s *MinioStore) List(ctx context.Context, slug string) ([]Summary, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	var timestamps []int64
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: path.Join(s.prefix, slug) + "/"})
	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("[MINIO] listing %s: %w", slug, object.Err)
		}
		if ts, ok := parseFileName(path.Base(object.Key)); ok {
			timestamps = append(timestamps, ts)
		}
	}

	return summaries(timestamps), nil
}

func (s *MinioStore) Get(ctx context.Context, slug string, ts int64) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}

	object, err := s.client.GetObject(ctx, s.bucket, s.objectName(slug, ts), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("[MINIO] fetching %s: %w", s.objectName(slug, ts), err)
	}

	defer object.Close()

	// GetObject is lazy; a missing key only shows up on the first read.
	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("[MINIO] reading %s: %w", s.objectName(slug, ts), err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("[MINIO] decoding %s: %w", s.objectName(slug, ts), err)
	}

	return record, nil
}
