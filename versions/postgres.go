package versions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const insertVersionQuery = `
	INSERT INTO page_versions (slug, ts, blocks)
	VALUES ($1, GREATEST($2, COALESCE((SELECT MAX(v.ts) + 1 FROM page_versions v WHERE v.slug = $1), $2)), $3)
	RETURNING ts`

// PostgresStore keeps versions in the page_versions table. Timestamps are
// assigned inside the INSERT so they stay increasing across instances.
type PostgresStore struct {
	db  *sql.DB
	now Clock
}

func NewPostgresStore(db *sql.DB, now Clock) *PostgresStore {
	if now == nil {
		now = time.Now
	}
	return &PostgresStore{db: db, now: now}
}

func (s *PostgresStore) Name() string {
	return "postgres"
}

func (s *PostgresStore) Save(ctx context.Context, slug string, blocks json.RawMessage) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}
	if err := validateBlocks(blocks); err != nil {
		return Record{}, err
	}

	var ts int64
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		err = s.db.QueryRowContext(ctx, insertVersionQuery, slug, s.now().UnixMilli(), string(blocks)).Scan(&ts)

		// Two concurrent inserts can compute the same MAX(ts) + 1.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			continue
		}
		break
	}
	if err != nil {
		return Record{}, fmt.Errorf("[DATABASE] inserting version of %s: %w", slug, err)
	}

	return Record{Slug: slug, Blocks: blocks, TS: ts}, nil
}

func (s *PostgresStore) List(ctx context.Context, slug string) ([]Summary, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ts FROM page_versions WHERE slug = $1 ORDER BY ts DESC`, slug)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] listing versions of %s: %w", slug, err)
	}

	defer rows.Close()

	var timestamps []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("[DATABASE] scanning versions of %s: %w", slug, err)
		}
		timestamps = append(timestamps, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[DATABASE] listing versions of %s: %w", slug, err)
	}

	return summaries(timestamps), nil
}

func (s *PostgresStore) Get(ctx context.Context, slug string, ts int64) (Record, error) {
	if err := ValidateSlug(slug); err != nil {
		return Record{}, err
	}

	var blocks []byte
	err := s.db.QueryRowContext(ctx, `SELECT blocks FROM page_versions WHERE slug = $1 AND ts = $2`, slug, ts).Scan(&blocks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("[DATABASE] reading version %s/%d: %w", slug, ts, err)
	}

	return Record{Slug: slug, Blocks: json.RawMessage(blocks), TS: ts}, nil
}
