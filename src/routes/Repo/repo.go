package repo

import (
	"github.com/go-chi/chi/v5"

	"sitewise-backend/src/middleware"
)

func RepoRouter(rHandler RepoHandler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)

		r.Get("/list", rHandler.ListUserRepositories)
		r.Post("/ensure", rHandler.EnsureRepository)
	})

	return r
}
