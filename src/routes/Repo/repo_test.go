package repo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewise-backend/github"
	"sitewise-backend/github/githubtest"
	"sitewise-backend/src/middleware"
	repo "sitewise-backend/src/routes/Repo"
)

const userToken = "gho_octocat"

type fixture struct {
	gh      *githubtest.Server
	session *middleware.Session
	handler http.Handler
}

func newFixture(t *testing.T, templateConfigured bool) fixture {
	t.Helper()

	gh := githubtest.NewServer()
	t.Cleanup(gh.Close)

	gh.AddUser(userToken, github.User{Login: "octocat", AvatarURL: "https://avatars.example/octocat"})
	gh.AddRepo(github.Repository{Name: "template", Owner: github.User{Login: "sitewise"}, DefaultBranch: "main"})
	gh.PutFile("sitewise", "template", "README.md", []byte("# site"))

	handler := repo.RepoHandler{Github: gh.Client()}
	if templateConfigured {
		handler.TemplateOwner = "sitewise"
		handler.TemplateRepo = "template"
	}

	session := middleware.NewSession("repo-test-secret-repo-test-secret", false)
	return fixture{gh: gh, session: session, handler: session.Verifier()(repo.RepoRouter(handler))}
}

func (f fixture) do(t *testing.T, method, path, body string, signedIn bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if signedIn {
		issued := httptest.NewRecorder()
		require.NoError(t, f.session.Issue(issued, userToken))
		req.AddCookie(issued.Result().Cookies()[0])
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRequireSession(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/list", "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/ensure", "{}", false).Code)
}

func TestListUserRepositories(t *testing.T) {
	f := newFixture(t, true)
	f.gh.SetUserRepos(userToken, []github.Repository{
		{ID: 7, Name: "site", FullName: "octocat/site", DefaultBranch: "main", Owner: github.User{Login: "octocat", AvatarURL: "https://avatars.example/octocat"}},
	})

	rec := f.do(t, http.MethodGet, "/list", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body repo.ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Repos, 1)
	assert.Equal(t, "octocat/site", body.Repos[0].FullName)
	assert.Equal(t, "octocat", body.Repos[0].Owner)
	assert.Equal(t, "https://avatars.example/octocat", body.Repos[0].AvatarURL)
}

func TestEnsureCreatesAndSeeds(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/ensure", "", true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body repo.EnsureResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Ok)
	assert.True(t, body.Created)
	require.NotNil(t, body.Seeded)
	assert.True(t, *body.Seeded)
	assert.Equal(t, "octocat/sitewise-site", body.Repo.FullName)

	pages, ok := f.gh.File("octocat", "sitewise-site", repo.PagesPath)
	require.True(t, ok)
	assert.JSONEq(t, `{"content":[],"root":{}}`, string(pages.Content))

	_, ok = f.gh.File("octocat", "sitewise-site", "README.md")
	assert.True(t, ok)
}

func TestEnsureSeedsInitialData(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/ensure", `{"name":"my-site","initialData":{"content":[{"type":"Hero"}],"root":{}}}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	pages, ok := f.gh.File("octocat", "my-site", repo.PagesPath)
	require.True(t, ok)
	assert.JSONEq(t, `{"content":[{"type":"Hero"}],"root":{}}`, string(pages.Content))
}

func TestEnsureExistingRepository(t *testing.T) {
	f := newFixture(t, true)
	f.gh.AddRepo(github.Repository{Name: "sitewise-site", Owner: github.User{Login: "octocat"}})

	rec := f.do(t, http.MethodPost, "/ensure", "{}", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body repo.EnsureResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Ok)
	assert.False(t, body.Created)
	assert.Nil(t, body.Seeded)

	_, seeded := f.gh.File("octocat", "sitewise-site", repo.PagesPath)
	assert.False(t, seeded)
}

func TestEnsureRejectsBadInput(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/ensure", `{"name":"no spaces"}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/ensure", `{"name":`, true).Code)
}

func TestEnsureWithoutTemplate(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, http.StatusInternalServerError, f.do(t, http.MethodPost, "/ensure", "{}", true).Code)
}
