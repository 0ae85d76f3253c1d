package page

import (
	"github.com/go-chi/chi/v5"

	"sitewise-backend/src/middleware"
)

func PageRouter(pHandler PageHandler, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Get("/", pHandler.GetPage)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Handler)
		}

		r.Post("/", pHandler.SavePage)
	})

	return r
}
