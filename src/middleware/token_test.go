package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionHandler(session *Session) http.Handler {
	return session.Verifier()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(SessionToken(r)))
	}))
}

func TestSessionIssueAndVerify(t *testing.T) {
	session := NewSession("test-secret-test-secret-test-secret", true)

	rec := httptest.NewRecorder()
	require.NoError(t, session.Issue(rec, "gho_abc"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, int(SessionLifetime.Seconds()), cookie.MaxAge)
	assert.NotEqual(t, "gho_abc", cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	sessionHandler(session).ServeHTTP(out, req)

	assert.Equal(t, "gho_abc", out.Body.String())
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	issuer := NewSession("one-secret-one-secret-one-secret", false)
	verifier := NewSession("two-secret-two-secret-two-secret", false)

	rec := httptest.NewRecorder()
	require.NoError(t, issuer.Issue(rec, "gho_abc"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	out := httptest.NewRecorder()
	sessionHandler(verifier).ServeHTTP(out, req)

	assert.Empty(t, out.Body.String())
}

func TestSessionClear(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSession("s", false).Clear(rec)

	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, SessionCookie, cookie.Name)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestRequireSession(t *testing.T) {
	session := NewSession("test-secret-test-secret-test-secret", false)
	handler := session.Verifier()(RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	issued := httptest.NewRecorder()
	require.NoError(t, session.Issue(issued, "gho_abc"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued.Result().Cookies()[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResolveTokenOrder(t *testing.T) {
	session := NewSession("test-secret-test-secret-test-secret", false)

	resolve := func(req *http.Request, bodyToken, serverToken string) string {
		var got string
		session.Verifier()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = ResolveToken(r, bodyToken, serverToken)
		})).ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	bare := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, "", resolve(bare, "", ""))
	assert.Equal(t, "env", resolve(bare, "", "env"))
	assert.Equal(t, "body", resolve(bare, " body ", "env"))

	issued := httptest.NewRecorder()
	require.NoError(t, session.Issue(issued, "cookie"))
	withCookie := httptest.NewRequest(http.MethodPost, "/", nil)
	withCookie.AddCookie(issued.Result().Cookies()[0])
	assert.Equal(t, "cookie", resolve(withCookie, "body", "env"))
}
