package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"sitewise-backend/github"
	"sitewise-backend/src/middleware"
	"sitewise-backend/utils"
)

func (a AuthHandler) redirectURI() string {
	return a.AppURL + CallbackPath
}

func (a AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if len(strings.TrimSpace(a.ClientID)) == 0 {
		errMsg := "GitHub OAuth is not configured"
		utils.HandleError(utils.ErrInternal, nil, w, r, &errMsg)
		return
	}

	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   StateLifetime,
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.Github.AuthorizeURL(a.ClientID, a.redirectURI(), state, Scopes), http.StatusFound)
}

func (a AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if len(strings.TrimSpace(code)) == 0 {
		errMsg := "Missing OAuth code"
		utils.HandleError(utils.ErrInvalid, nil, w, r, &errMsg)
		return
	}

	stateCookie, err := r.Cookie(StateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || len(state) == 0 || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		errMsg := "OAuth state mismatch"
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	response, err := a.Github.ExchangeCode(r.Context(), a.ClientID, a.ClientSecret, code, a.redirectURI())
	if err != nil {
		utils.HandleError(utils.ErrUnAuthorized, err, w, r, nil)
		return
	}

	err = a.Session.Issue(w, response.AccessToken)
	if err != nil {
		utils.HandleError(utils.ErrInternal, err, w, r, nil)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: StateCookie, Value: "", Path: "/api/auth", MaxAge: -1, HttpOnly: true})

	utils.Log.Infow("[AUTH] signed in", "scope", response.Scope)
	http.Redirect(w, r, a.AppURL+a.PostLoginPath, http.StatusFound)
}

func (a AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	a.Session.Clear(w)

	if r.Method == http.MethodGet {
		http.Redirect(w, r, a.AppURL+"/", http.StatusFound)
		return
	}

	render.JSON(w, r, LogoutResponse{Ok: true})
}

func (a AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if len(token) == 0 {
		render.JSON(w, r, MeResponse{Authenticated: false})
		return
	}

	user, err := a.Github.WithToken(token).CurrentUser(r.Context())
	if err != nil {
		var apiErr *github.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			// The GitHub token was revoked; the cookie is worthless now.
			a.Session.Clear(w)
			render.JSON(w, r, MeResponse{Authenticated: false})
			return
		}
		utils.HandleUpstreamError(err, w, r)
		return
	}

	render.JSON(w, r, MeResponse{
		Authenticated: true,
		Login:         user.Login,
		Name:          user.Name,
		AvatarURL:     user.AvatarURL,
	})
}
