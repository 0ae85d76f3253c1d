package versions_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewise-backend/github"
	"sitewise-backend/github/githubtest"
	"sitewise-backend/versions"
)

func newGithubStore(t *testing.T, clock versions.Clock) (*versions.GithubStore, *githubtest.Server) {
	t.Helper()

	fake := githubtest.NewServer()
	t.Cleanup(fake.Close)
	fake.AddUser("tok", github.User{Login: "octo"})
	fake.AddRepo(github.Repository{Name: "site", Owner: github.User{Login: "octo"}})

	return versions.NewGithubStore(fake.Client().WithToken("tok"), "octo", "site", "main", clock), fake
}

func TestGithubStoreSaveListGet(t *testing.T) {
	now := int64(1_000)
	store, fake := newGithubStore(t, func() time.Time {
		now += 100
		return time.UnixMilli(now)
	})
	ctx := context.Background()

	first, err := store.Save(ctx, "home", json.RawMessage(`["v1"]`))
	require.NoError(t, err)
	second, err := store.Save(ctx, "home", json.RawMessage(`["v2"]`))
	require.NoError(t, err)

	file, ok := fake.File("octo", "site", "public/data/versions/home/1100.json")
	require.True(t, ok)
	assert.Contains(t, string(file.Content), `"slug": "home"`)

	list, err := store.List(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, []versions.Summary{{ID: second.TS, TS: second.TS}, {ID: first.TS, TS: first.TS}}, list)

	got, err := store.Get(ctx, "home", first.TS)
	require.NoError(t, err)
	assert.JSONEq(t, `["v1"]`, string(got.Blocks))
}

func TestGithubStoreMissing(t *testing.T) {
	store, _ := newGithubStore(t, nil)
	ctx := context.Background()

	list, err := store.List(ctx, "home")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = store.Get(ctx, "home", 42)
	assert.ErrorIs(t, err, versions.ErrNotFound)
}

func TestGithubStoreSkipsTakenPath(t *testing.T) {
	store, fake := newGithubStore(t, func() time.Time { return time.UnixMilli(500) })
	fake.PutFile("octo", "site", "public/data/versions/home/500.json", []byte(`{}`))

	record, err := store.Save(context.Background(), "home", json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Equal(t, int64(501), record.TS)
}

func TestGithubRollbackCopiesContent(t *testing.T) {
	now := int64(10_000)
	store, fake := newGithubStore(t, func() time.Time {
		now += 1
		return time.UnixMilli(now)
	})
	ctx := context.Background()

	old, err := store.Save(ctx, "home", json.RawMessage(`{"hero":"old"}`))
	require.NoError(t, err)
	_, err = store.Save(ctx, "home", json.RawMessage(`{"hero":"new"}`))
	require.NoError(t, err)

	restored, err := versions.Rollback(ctx, store, "home", old.TS)
	require.NoError(t, err)

	file, ok := fake.File("octo", "site", "public/data/versions/home/"+strconv.FormatInt(restored.TS, 10)+".json")
	require.True(t, ok)

	var record versions.Record
	require.NoError(t, json.Unmarshal(file.Content, &record))
	assert.JSONEq(t, `{"hero":"old"}`, string(record.Blocks))
}
