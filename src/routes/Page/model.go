package page

import (
	"encoding/json"

	"sitewise-backend/events"
	"sitewise-backend/github"
)

const (
	PagesPath      = "data/pages.json"
	DefaultMessage = "Update pages.json from editor"
)

type PageHandler struct {
	Github *github.Client
	Events events.Publisher

	// ServerToken, Owner, Repo and Branch are the configured fallbacks for
	// requests that do not name their own.
	ServerToken string
	Owner       string
	Repo        string
	Branch      string
}

type SaveRequest struct {
	PageData json.RawMessage `json:"pageData" validate:"jsonvalue"`
	Message  string          `json:"message" validate:"omitempty,max=1000"`
	Token    string          `json:"token"`
	Owner    string          `json:"owner"`
	Repo     string          `json:"repo"`
	Branch   string          `json:"branch"`
}

type SaveResponse struct {
	Ok     bool   `json:"ok"`
	Commit string `json:"commit"`
	SHA    string `json:"sha"`
	Path   string `json:"path"`
}

type PageResponse struct {
	PageData json.RawMessage `json:"pageData"`
	SHA      string          `json:"sha"`
}
