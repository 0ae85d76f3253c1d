package auth

import "github.com/go-chi/chi/v5"

func AuthRouter(a AuthHandler) chi.Router {
	r := chi.NewRouter()

	r.Get("/login", a.Login)
	r.Get("/callback", a.Callback)
	r.Get("/logout", a.Logout)
	r.Post("/logout", a.Logout)
	r.Get("/me", a.Me)

	return r
}
