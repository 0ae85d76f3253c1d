package repo

import (
	"encoding/json"

	"sitewise-backend/github"
)

const (
	DefaultRepoName = "sitewise-site"
	PagesPath       = "data/pages.json"
)

var DefaultPageData = json.RawMessage(`{"content":[],"root":{}}`)

type RepoHandler struct {
	Github        *github.Client
	TemplateOwner string
	TemplateRepo  string
}

type RepoSummary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"defaultBranch"`
	HTMLURL       string `json:"htmlUrl"`
	Owner         string `json:"owner"`
	AvatarURL     string `json:"avatarUrl"`
}

func summarize(r github.Repository) RepoSummary {
	return RepoSummary{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.FullName,
		Private:       r.Private,
		DefaultBranch: r.DefaultBranch,
		HTMLURL:       r.HTMLURL,
		Owner:         r.Owner.Login,
		AvatarURL:     r.Owner.AvatarURL,
	}
}

type ListResponse struct {
	Repos []RepoSummary `json:"repos"`
}

type EnsureRequest struct {
	Name        string          `json:"name" validate:"reponame"`
	Private     bool            `json:"private"`
	InitialData json.RawMessage `json:"initialData"`
}

type EnsureResponse struct {
	Ok      bool        `json:"ok"`
	Created bool        `json:"created"`
	Seeded  *bool       `json:"seeded,omitempty"`
	Repo    RepoSummary `json:"repo"`
}
