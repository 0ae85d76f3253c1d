package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"sitewise-backend/src/middleware"
	"sitewise-backend/utils"
)

// Status reports whether the session user may edit the configured site repo.
// Push, maintain or admin permission on the repo is enough. A repo forked or
// generated from the template also counts, but only when the session user
// owns it: being able to see a public fork is not edit access.
// Status never fails: anything short of a confirmed permission is reported
// as not admin.
func (a AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if len(token) == 0 {
		render.JSON(w, r, StatusResponse{IsAdmin: false})
		return
	}

	isAdmin, err := a.isAdmin(r.Context(), token)
	if err != nil {
		utils.Log.Infow("[ADMIN] permission check failed", "owner", a.Owner, "repo", a.Repo, "error", err)
	}

	render.JSON(w, r, StatusResponse{IsAdmin: isAdmin})
}

// isAdmin applies the rules documented on Status. The ownership lookup costs a
// second GitHub call and only runs for template-derived repos.
func (a AdminHandler) isAdmin(ctx context.Context, token string) (bool, error) {
	if len(a.Owner) == 0 || len(a.Repo) == 0 {
		return false, nil
	}

	client := a.Github.WithToken(token)

	repository, err := client.GetRepo(ctx, a.Owner, a.Repo)
	if err != nil {
		return false, err
	}

	if p := repository.Permissions; p != nil && (p.Push || p.Admin || p.Maintain) {
		return true, nil
	}

	if len(a.TemplateOwner) == 0 || len(a.TemplateRepo) == 0 || !repository.DerivedFrom(a.TemplateOwner, a.TemplateRepo) {
		return false, nil
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(user.Login, repository.Owner.Login), nil
}
