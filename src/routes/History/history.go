package history

import "github.com/go-chi/chi/v5"

func HistoryRouter(hHandler HistoryHandler) chi.Router {
	r := chi.NewRouter()

	r.Get("/{slug}", hHandler.ListVersions)
	r.Post("/{slug}", hHandler.SaveVersion)
	r.Put("/{slug}", hHandler.RollbackVersion)

	return r
}
