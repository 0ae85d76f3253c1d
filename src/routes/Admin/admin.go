package admin

import "github.com/go-chi/chi/v5"

func AdminRouter(a AdminHandler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", a.Status)

	return r
}
