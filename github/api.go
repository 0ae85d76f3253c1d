package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"sitewise-backend/utils"
)

// AuthorizeURL builds the OAuth authorize redirect for the web flow.
func (c *Client) AuthorizeURL(clientID, redirectURI, state string, scopes []string) string {
	params := url.Values{}
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", strings.Join(scopes, " "))
	if state != "" {
		params.Set("state", state)
	}

	return c.OAuthURL + "/login/oauth/authorize?" + params.Encode()
}

// ExchangeCode trades an OAuth code for a user access token. GitHub answers
// bad codes with 200 and an error payload, which is returned as an error.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (TokenResponse, error) {
	var tokenResponse TokenResponse
	var ghError oauthError

	params := map[string]string{
		"client_id":     clientID,
		"client_secret": clientSecret,
		"code":          code,
	}
	if redirectURI != "" {
		params["redirect_uri"] = redirectURI
	}

	resp, err := utils.Request(ctx, c.HTTP, http.MethodPost, c.OAuthURL+"/login/oauth/access_token", nil, &params, nil)
	if err != nil {
		return tokenResponse, fmt.Errorf("[AUTH] calling GitHub token endpoint: %w", err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse, fmt.Errorf("[AUTH] reading GitHub token response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return tokenResponse, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	err = json.Unmarshal(body, &tokenResponse)
	if err != nil {
		return tokenResponse, fmt.Errorf("[AUTH] decoding GitHub token response: %w", err)
	}

	if len(tokenResponse.AccessToken) > 0 {
		return tokenResponse, nil
	}

	err = json.Unmarshal(body, &ghError)
	if err == nil && len(ghError.Error) > 0 {
		return tokenResponse, &APIError{Status: http.StatusUnauthorized, Message: ghError.ErrorDescription}
	}

	return tokenResponse, &APIError{Status: http.StatusUnauthorized, Message: "no access token in GitHub response"}
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListUserRepos(ctx context.Context) ([]Repository, error) {
	params := map[string]string{
		"per_page":    "100",
		"sort":        "updated",
		"affiliation": "owner,collaborator,organization_member",
	}

	var repositories []Repository
	if err := c.do(ctx, http.MethodGet, "/user/repos", &params, nil, &repositories); err != nil {
		return nil, err
	}
	return repositories, nil
}

func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repository, error) {
	var repository Repository
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo), nil, nil, &repository); err != nil {
		return nil, err
	}
	return &repository, nil
}

func (c *Client) GenerateFromTemplate(ctx context.Context, templateOwner, templateRepo string, req GenerateRequest) (*Repository, error) {
	var repository Repository
	if err := c.do(ctx, http.MethodPost, repoPath(templateOwner, templateRepo)+"/generate", nil, req, &repository); err != nil {
		return nil, err
	}
	return &repository, nil
}

func contentsPath(owner, repo, path string) string {
	return repoPath(owner, repo) + "/contents/" + escapePath(path)
}

func refParams(ref string) *map[string]string {
	if ref == "" {
		return nil
	}
	return &map[string]string{"ref": ref}
}

// GetContent fetches a single file through the Contents API.
func (c *Client) GetContent(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	file, err := c.statContent(ctx, owner, repo, path, ref)
	if err != nil {
		return nil, err
	}

	// Files between 1 and 100 MB come back with encoding "none" and no
	// content; only the raw media type carries their body.
	if file.Encoding == "none" && file.Content == "" {
		raw, err := c.send(ctx, http.MethodGet, contentsPath(owner, repo, path), mediaRaw, refParams(ref), nil)
		if err != nil {
			return nil, err
		}
		file.raw = raw
	}

	return file, nil
}

func (c *Client) statContent(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	var file FileContent
	if err := c.do(ctx, http.MethodGet, contentsPath(owner, repo, path), refParams(ref), nil, &file); err != nil {
		return nil, err
	}

	if file.Type != "" && file.Type != "file" {
		return nil, fmt.Errorf("[GITHUB] %s is a %s, not a file", path, file.Type)
	}

	return &file, nil
}

// ListDirectory lists a directory through the Contents API.
func (c *Client) ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]FileContent, error) {
	var entries []FileContent
	if err := c.do(ctx, http.MethodGet, contentsPath(owner, repo, path), refParams(ref), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PutContent creates or updates a file. Updates must carry the blob SHA being
// replaced; GitHub rejects stale SHAs with 409.
func (c *Client) PutContent(ctx context.Context, owner, repo, path string, req PutContentRequest) (*ContentResponse, error) {
	payload := putContentPayload{
		Message: req.Message,
		Content: base64.StdEncoding.EncodeToString(req.Content),
		SHA:     req.SHA,
		Branch:  req.Branch,
	}

	var result ContentResponse
	if err := c.do(ctx, http.MethodPut, contentsPath(owner, repo, path), nil, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FileSHA returns the blob SHA of path, or "" when the file does not exist yet.
func (c *Client) FileSHA(ctx context.Context, owner, repo, path, ref string) (string, error) {
	file, err := c.statContent(ctx, owner, repo, path, ref)
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return file.SHA, nil
}
