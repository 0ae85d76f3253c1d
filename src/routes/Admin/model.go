package admin

import "sitewise-backend/github"

type AdminHandler struct {
	Github        *github.Client
	Owner         string
	Repo          string
	TemplateOwner string
	TemplateRepo  string
}

type StatusResponse struct {
	IsAdmin bool `json:"isAdmin"`
}
