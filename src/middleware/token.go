package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"sitewise-backend/utils"
)

const (
	SessionCookie   = "gh_token"
	SessionLifetime = 30 * 24 * time.Hour

	githubTokenClaim = "gh"
)

// Session issues and verifies the gh_token cookie. The cookie holds an HS256
// JWT whose "gh" claim is the GitHub access token of the signed-in user.
type Session struct {
	tokenAuth *jwtauth.JWTAuth
	secure    bool
}

// NewSession builds the session signer. An empty secret yields a random
// per-process key, so sessions end with the process.
func NewSession(secret string, secure bool) *Session {
	if len(secret) == 0 {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("[SESSION] could not generate a signing key: " + err.Error())
		}
		utils.Log.Warn("[SESSION] SESSION_SECRET is not set, using an ephemeral key")
		secret = hex.EncodeToString(key)
	}

	return &Session{
		tokenAuth: jwtauth.New("HS256", []byte(secret), nil),
		secure:    secure,
	}
}

func (s *Session) Issue(w http.ResponseWriter, githubToken string) error {
	claims := map[string]interface{}{githubTokenClaim: githubToken}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, SessionLifetime)

	_, tokenStr, err := s.tokenAuth.Encode(claims)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int(SessionLifetime.Seconds()),
		Expires:  time.Now().Add(SessionLifetime),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (s *Session) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Verifier decodes the session cookie into the request context. It never
// rejects a request; handlers decide whether a session is required.
func (s *Session) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(s.tokenAuth, tokenFromSessionCookie)
}

func tokenFromSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SessionToken returns the GitHub access token of a verified session, or "".
func SessionToken(r *http.Request) string {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return ""
	}

	githubToken, _ := claims[githubTokenClaim].(string)
	return githubToken
}

func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionToken(r) == "" {
			errMsg := "Sign in with GitHub first"
			utils.HandleError(utils.ErrUnAuthorized, nil, w, r, &errMsg)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ResolveToken picks the GitHub token for a request: the session first, then a
// token supplied in the request body, then the server's own token.
func ResolveToken(r *http.Request, bodyToken, serverToken string) string {
	if token := SessionToken(r); token != "" {
		return token
	}
	if token := strings.TrimSpace(bodyToken); token != "" {
		return token
	}
	return serverToken
}
