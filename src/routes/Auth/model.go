package auth

import (
	"sitewise-backend/github"
	"sitewise-backend/src/middleware"
)

const (
	StateCookie   = "gh_oauth_state"
	StateLifetime = 600
	CallbackPath  = "/api/auth/callback"
)

var Scopes = []string{"repo", "read:user", "user:email"}

type AuthHandler struct {
	Github        *github.Client
	Session       *middleware.Session
	ClientID      string
	ClientSecret  string
	AppURL        string
	PostLoginPath string
	Secure        bool
}

type LogoutResponse struct {
	Ok bool `json:"ok"`
}

type MeResponse struct {
	Authenticated bool   `json:"authenticated"`
	Login         string `json:"login,omitempty"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
}
