package history_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewise-backend/events"
	"sitewise-backend/github"
	"sitewise-backend/github/githubtest"
	"sitewise-backend/src/middleware"
	history "sitewise-backend/src/routes/History"
	"sitewise-backend/versions"
)

type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func steppingClock() versions.Clock {
	now := int64(1_700_000_000_000)
	return func() time.Time {
		now += 10
		return time.UnixMilli(now)
	}
}

func do(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func localHandler(t *testing.T) (http.Handler, *capturePublisher) {
	t.Helper()

	publisher := &capturePublisher{}
	store := versions.NewFileStore(t.TempDir(), steppingClock())
	return history.HistoryRouter(history.HistoryHandler{Resolve: history.LocalStore(store), Events: publisher}), publisher
}

func TestSaveThenList(t *testing.T) {
	handler, publisher := localHandler(t)

	first := do(handler, http.MethodPost, "/home", `{"blocks":[{"type":"Hero"}]}`)
	require.Equal(t, http.StatusOK, first.Code)
	saved := decode[history.SaveResponse](t, first)
	assert.True(t, saved.Ok)

	second := decode[history.SaveResponse](t, do(handler, http.MethodPost, "/home", `{"blocks":[{"type":"Text"}]}`))
	require.Greater(t, second.Version, saved.Version)

	list := decode[history.ListResponse](t, do(handler, http.MethodGet, "/home", ""))
	assert.Equal(t, "home", list.Slug)
	assert.Equal(t, []versions.Summary{
		{ID: second.Version, TS: second.Version},
		{ID: saved.Version, TS: saved.Version},
	}, list.Versions)

	record := decode[versions.Record](t, do(handler, http.MethodGet, "/home?id="+strconv.FormatInt(saved.Version, 10), ""))
	assert.JSONEq(t, `[{"type":"Hero"}]`, string(record.Blocks))

	require.Len(t, publisher.events, 2)
	assert.Equal(t, events.VersionSaved, publisher.events[0].Type)
	assert.Equal(t, "fs", publisher.events[0].Backend)
}

func TestListUnknownSlug(t *testing.T) {
	handler, _ := localHandler(t)

	rec := do(handler, http.MethodGet, "/nothing-here", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"slug":"nothing-here","versions":[]}`, rec.Body.String())
}

func TestSaveRejectsBadInput(t *testing.T) {
	handler, _ := localHandler(t)

	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPost, "/home", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPost, "/home", `{"blocks":null}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPost, "/home", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPost, "/..bad", `{"blocks":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodGet, "/home?id=abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(handler, http.MethodGet, "/home?id=42", "").Code)
}

func TestRollback(t *testing.T) {
	handler, publisher := localHandler(t)

	old := decode[history.SaveResponse](t, do(handler, http.MethodPost, "/home", `{"blocks":["old"]}`))
	do(handler, http.MethodPost, "/home", `{"blocks":["new"]}`)

	// versionId may arrive as a string.
	rec := do(handler, http.MethodPut, "/home", `{"versionId":"`+strconv.FormatInt(old.Version, 10)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	restored := decode[history.RollbackResponse](t, rec)
	assert.True(t, restored.Ok)
	assert.Equal(t, old.Version, restored.RestoredFrom)
	assert.Greater(t, restored.Version, old.Version)

	list := decode[history.ListResponse](t, do(handler, http.MethodGet, "/home", ""))
	require.Len(t, list.Versions, 3)
	assert.Equal(t, restored.Version, list.Versions[0].TS)

	latest := decode[versions.Record](t, do(handler, http.MethodGet, "/home?id="+strconv.FormatInt(restored.Version, 10), ""))
	assert.JSONEq(t, `["old"]`, string(latest.Blocks))

	last := publisher.events[len(publisher.events)-1]
	assert.Equal(t, events.VersionRolledBack, last.Type)
	assert.Equal(t, old.Version, last.RestoredFrom)
}

func TestRollbackErrors(t *testing.T) {
	handler, _ := localHandler(t)

	assert.Equal(t, http.StatusNotFound, do(handler, http.MethodPut, "/home", `{"versionId":12345}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPut, "/home", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(handler, http.MethodPut, "/home", `{"versionId":"abc"}`).Code)
}

func githubHandler(t *testing.T, serverToken string) (http.Handler, *githubtest.Server, *middleware.Session) {
	t.Helper()

	gh := githubtest.NewServer()
	t.Cleanup(gh.Close)
	gh.AddUser("gho_editor", github.User{Login: "editor"})
	gh.AddRepo(github.Repository{Name: "site", Owner: github.User{Login: "acme"}})

	// A frozen clock makes consecutive requests collide on the same millisecond.
	frozen := func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	session := middleware.NewSession("history-test-secret-history-test", false)
	handler := history.HistoryRouter(history.HistoryHandler{
		Resolve: history.GithubStore(gh.Client(), serverToken, "acme", "site", "main", frozen),
		Events:  events.Nop{},
	})

	return session.Verifier()(handler), gh, session
}

func TestGithubVersionsWithoutToken(t *testing.T) {
	handler, _, _ := githubHandler(t, "")

	assert.Equal(t, http.StatusUnauthorized, do(handler, http.MethodPost, "/home", `{"blocks":[]}`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(handler, http.MethodPut, "/home", `{"versionId":1}`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(handler, http.MethodGet, "/home", "").Code)
}

func TestGithubVersionsWithSession(t *testing.T) {
	handler, gh, session := githubHandler(t, "")

	issued := httptest.NewRecorder()
	require.NoError(t, session.Issue(issued, "gho_editor"))
	cookie := issued.Result().Cookies()[0]

	send := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/home", strings.NewReader(body))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := decode[history.SaveResponse](t, send(http.MethodPost, `{"blocks":["a"]}`))
	second := decode[history.SaveResponse](t, send(http.MethodPost, `{"blocks":["b"]}`))
	assert.Equal(t, first.Version+1, second.Version)

	restored := decode[history.RollbackResponse](t, send(http.MethodPut, `{"versionId":`+strconv.FormatInt(first.Version, 10)+`}`))
	assert.Equal(t, second.Version+1, restored.Version)

	file, ok := gh.File("acme", "site", versions.DefaultRoot+"/home/"+strconv.FormatInt(restored.Version, 10)+".json")
	require.True(t, ok)
	assert.Contains(t, string(file.Content), `"a"`)

	list := decode[history.ListResponse](t, send(http.MethodGet, ""))
	assert.Len(t, list.Versions, 3)

	assert.Equal(t, http.StatusNotFound, send(http.MethodPut, `{"versionId":99}`).Code)
}

func TestGithubVersionsUpstreamStatus(t *testing.T) {
	handler, _, _ := githubHandler(t, "gho_unknown")

	// The fake rejects unknown tokens with 401, which is passed through.
	assert.Equal(t, http.StatusUnauthorized, do(handler, http.MethodPost, "/home", `{"blocks":[]}`).Code)
}

// crowdedStore fails every save the way a backend does when all candidate
// timestamps are taken.
type crowdedStore struct {
	versions.Store
}

func (crowdedStore) Name() string { return "crowded" }

func (crowdedStore) Save(context.Context, string, json.RawMessage) (versions.Record, error) {
	return versions.Record{}, fmt.Errorf("[TEST] home: %w", versions.ErrNoFreeSlot)
}

func TestSaveWithoutFreeSlotConflicts(t *testing.T) {
	handler := history.HistoryRouter(history.HistoryHandler{
		Resolve: history.LocalStore(crowdedStore{}),
		Events:  events.Nop{},
	})

	rec := do(handler, http.MethodPost, "/home", `{"blocks":[]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
