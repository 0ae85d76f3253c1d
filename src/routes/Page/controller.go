package page

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"

	"sitewise-backend/events"
	"sitewise-backend/github"
	"sitewise-backend/metrics"
	"sitewise-backend/src/middleware"
	"sitewise-backend/utils"
)

func orDefault(value, fallback string) string {
	if len(value) > 0 {
		return value
	}
	return fallback
}

// SavePage commits the editor's page document to data/pages.json. An existing
// file is updated against its current SHA, so a concurrent commit makes
// GitHub answer 409 instead of silently losing one of the writes.
func (pHandler PageHandler) SavePage(w http.ResponseWriter, r *http.Request) {
	var body SaveRequest
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		errMsg := err.Error()
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	token := middleware.ResolveToken(r, body.Token, pHandler.ServerToken)
	if len(token) == 0 {
		errMsg := "No GitHub token: sign in or configure GITHUB_TOKEN"
		utils.HandleError(utils.ErrUnAuthorized, nil, w, r, &errMsg)
		return
	}

	if err := utils.ValidateStruct(body); err != nil {
		errMsg := err.Error()
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	owner := orDefault(body.Owner, pHandler.Owner)
	repo := orDefault(body.Repo, pHandler.Repo)
	branch := orDefault(body.Branch, pHandler.Branch)
	if len(owner) == 0 || len(repo) == 0 {
		errMsg := "owner and repo are required"
		utils.HandleError(utils.ErrInvalid, nil, w, r, &errMsg)
		return
	}

	var content bytes.Buffer
	if err := json.Indent(&content, body.PageData, "", "  "); err != nil {
		errMsg := "pageData is not valid JSON"
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}
	content.WriteByte('\n')

	client := pHandler.Github.WithToken(token)

	sha, err := client.FileSHA(r.Context(), owner, repo, PagesPath, branch)
	if err != nil {
		metrics.PageSavesCounter.WithLabelValues("error").Inc()
		utils.HandleUpstreamError(err, w, r)
		return
	}

	result, err := client.PutContent(r.Context(), owner, repo, PagesPath, github.PutContentRequest{
		Message: orDefault(body.Message, DefaultMessage),
		Content: content.Bytes(),
		SHA:     sha,
		Branch:  branch,
	})
	if err != nil {
		metrics.PageSavesCounter.WithLabelValues("error").Inc()
		utils.HandleUpstreamError(err, w, r)
		return
	}

	metrics.PageSavesCounter.WithLabelValues("ok").Inc()
	utils.Log.Infow("[PAGE] pages.json committed", "owner", owner, "repo", repo, "commit", result.Commit.SHA)

	err = pHandler.Events.Publish(r.Context(), events.Event{
		Type:   events.PageSaved,
		Owner:  owner,
		Repo:   repo,
		Branch: branch,
		Commit: result.Commit.SHA,
	})
	if err != nil {
		utils.Log.Warnw("[PAGE] could not publish event", "error", err)
	}

	render.JSON(w, r, SaveResponse{
		Ok:     true,
		Commit: result.Commit.SHA,
		SHA:    result.Content.SHA,
		Path:   PagesPath,
	})
}

func (pHandler PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	owner := orDefault(query.Get("owner"), pHandler.Owner)
	repo := orDefault(query.Get("repo"), pHandler.Repo)
	branch := orDefault(query.Get("branch"), pHandler.Branch)
	if len(owner) == 0 || len(repo) == 0 {
		errMsg := "owner and repo are required"
		utils.HandleError(utils.ErrInvalid, nil, w, r, &errMsg)
		return
	}

	// Public repositories can be read without any token.
	client := pHandler.Github.WithToken(middleware.ResolveToken(r, "", pHandler.ServerToken))

	file, err := client.GetContent(r.Context(), owner, repo, PagesPath, branch)
	if err != nil {
		if github.IsNotFound(err) {
			errMsg := "pages.json not found"
			utils.HandleError(utils.ErrNotFound, err, w, r, &errMsg)
			return
		}
		utils.HandleUpstreamError(err, w, r)
		return
	}

	data, err := file.Decoded()
	if err != nil || !json.Valid(data) {
		errMsg := "pages.json is not valid JSON"
		utils.HandleError(utils.ErrBadGateway, err, w, r, &errMsg)
		return
	}

	render.JSON(w, r, PageResponse{PageData: json.RawMessage(data), SHA: file.SHA})
}
