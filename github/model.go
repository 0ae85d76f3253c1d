package github

import (
	"encoding/base64"
	"fmt"
	"strings"
)

type TokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorURI         string `json:"error_uri"`
}

type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type Permissions struct {
	Admin    bool `json:"admin"`
	Maintain bool `json:"maintain"`
	Push     bool `json:"push"`
	Pull     bool `json:"pull"`
}

type Repository struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	FullName      string       `json:"full_name"`
	Private       bool         `json:"private"`
	Fork          bool         `json:"fork"`
	DefaultBranch string       `json:"default_branch"`
	HTMLURL       string       `json:"html_url"`
	Owner         User         `json:"owner"`
	Permissions   *Permissions `json:"permissions,omitempty"`

	// Parent and Source are only set on forks, TemplateRepository only on
	// repositories generated from a template.
	Parent             *Repository `json:"parent,omitempty"`
	Source             *Repository `json:"source,omitempty"`
	TemplateRepository *Repository `json:"template_repository,omitempty"`
}

// DerivedFrom reports whether the repository is a fork or a generated copy of
// owner/name.
func (r Repository) DerivedFrom(owner, name string) bool {
	fullName := owner + "/" + name
	for _, origin := range []*Repository{r.Parent, r.Source, r.TemplateRepository} {
		if origin != nil && strings.EqualFold(origin.FullName, fullName) {
			return true
		}
	}
	return false
}

type FileContent struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
	HTMLURL  string `json:"html_url,omitempty"`

	raw []byte
}

// Decoded returns the file body. The Contents API wraps base64 at 60 columns.
func (f FileContent) Decoded() ([]byte, error) {
	if f.raw != nil {
		return f.raw, nil
	}
	switch f.Encoding {
	case "", "base64":
	case "none":
		return nil, fmt.Errorf("[GITHUB] %s: %d bytes and no inline content", f.Path, f.Size)
	default:
		return []byte(f.Content), nil
	}
	return base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
}

type PutContentRequest struct {
	Message string
	Content []byte
	SHA     string
	Branch  string
}

type putContentPayload struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Message string `json:"message"`
}

type ContentResponse struct {
	Content FileContent `json:"content"`
	Commit  Commit      `json:"commit"`
}

type GenerateRequest struct {
	Owner              string `json:"owner,omitempty"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	Private            bool   `json:"private"`
	IncludeAllBranches bool   `json:"include_all_branches"`
}
