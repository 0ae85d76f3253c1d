package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"sitewise-backend/github"
	"sitewise-backend/src/middleware"
	"sitewise-backend/utils"
)

func (rHandler RepoHandler) ListUserRepositories(w http.ResponseWriter, r *http.Request) {
	client := rHandler.Github.WithToken(middleware.SessionToken(r))

	repositories, err := client.ListUserRepos(r.Context())
	if err != nil {
		utils.HandleUpstreamError(err, w, r)
		return
	}

	response := ListResponse{Repos: make([]RepoSummary, 0, len(repositories))}
	for _, repository := range repositories {
		response.Repos = append(response.Repos, summarize(repository))
	}

	render.JSON(w, r, response)
}

// EnsureRepository returns the user's site repository, generating it from the
// template repository when it does not exist yet.
func (rHandler RepoHandler) EnsureRepository(w http.ResponseWriter, r *http.Request) {
	if len(rHandler.TemplateOwner) == 0 || len(rHandler.TemplateRepo) == 0 {
		errMsg := "TEMPLATE_OWNER and TEMPLATE_REPO must be configured"
		utils.HandleError(utils.ErrInternal, nil, w, r, &errMsg)
		return
	}

	var body EnsureRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(w, r, &body); err != nil {
			errMsg := err.Error()
			utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
			return
		}
	}

	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) == 0 {
		body.Name = DefaultRepoName
	}

	if err := utils.ValidateStruct(body); err != nil {
		errMsg := err.Error()
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	client := rHandler.Github.WithToken(middleware.SessionToken(r))

	user, err := client.CurrentUser(r.Context())
	if err != nil {
		utils.HandleUpstreamError(err, w, r)
		return
	}

	existing, err := client.GetRepo(r.Context(), user.Login, body.Name)
	if err == nil {
		render.JSON(w, r, EnsureResponse{Ok: true, Created: false, Repo: summarize(*existing)})
		return
	}
	if !github.IsNotFound(err) {
		utils.HandleUpstreamError(err, w, r)
		return
	}

	created, err := client.GenerateFromTemplate(r.Context(), rHandler.TemplateOwner, rHandler.TemplateRepo, github.GenerateRequest{
		Owner:   user.Login,
		Name:    body.Name,
		Private: body.Private,
	})
	if err != nil {
		utils.HandleUpstreamError(err, w, r)
		return
	}

	utils.Log.Infow("[REPO] generated from template", "repo", created.FullName, "template", rHandler.TemplateOwner+"/"+rHandler.TemplateRepo)

	seeded := true
	if err := seedPages(r.Context(), client, created, body.InitialData); err != nil {
		// The repository exists either way; the editor can save pages.json later.
		seeded = false
		utils.Log.Warnw("[REPO] seeding pages.json failed", "repo", created.FullName, "error", err)
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, EnsureResponse{Ok: true, Created: true, Seeded: &seeded, Repo: summarize(*created)})
}

func seedPages(ctx context.Context, client *github.Client, repository *github.Repository, initialData json.RawMessage) error {
	if len(bytes.TrimSpace(initialData)) == 0 || bytes.Equal(bytes.TrimSpace(initialData), []byte("null")) {
		initialData = DefaultPageData
	}

	var content bytes.Buffer
	if err := json.Indent(&content, initialData, "", "  "); err != nil {
		return err
	}

	owner := repository.Owner.Login
	sha, err := client.FileSHA(ctx, owner, repository.Name, PagesPath, repository.DefaultBranch)
	if err != nil {
		return err
	}

	_, err = client.PutContent(ctx, owner, repository.Name, PagesPath, github.PutContentRequest{
		Message: "Seed pages.json",
		Content: content.Bytes(),
		SHA:     sha,
		Branch:  repository.DefaultBranch,
	})
	return err
}
