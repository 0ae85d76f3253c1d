package src

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"sitewise-backend/config"
	"sitewise-backend/events"
	"sitewise-backend/github"
	"sitewise-backend/metrics"
	"sitewise-backend/src/middleware"
	admin "sitewise-backend/src/routes/Admin"
	auth "sitewise-backend/src/routes/Auth"
	history "sitewise-backend/src/routes/History"
	page "sitewise-backend/src/routes/Page"
	repo "sitewise-backend/src/routes/Repo"
	"sitewise-backend/utils"
	"sitewise-backend/versions"
)

type Dependencies struct {
	Settings *config.Settings
	Github   *github.Client
	Session  *middleware.Session
	Versions versions.Store
	Events   events.Publisher

	// Now drives version timestamps and the rate limiter; nil means time.Now.
	Now func() time.Time
}

type HealthResponse struct {
	Status string `json:"status"`
}

func Service(deps Dependencies) http.Handler {
	settings := deps.Settings
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	// Forwarding headers are client-controlled unless a proxy overwrites
	// them, and the save-page limiter keys on the resulting address.
	if settings.TrustProxy {
		router.Use(chimiddleware.RealIP)
	}
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{settings.AppURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Use(deps.Session.Verifier())

	gh := settings.Github
	limiter := middleware.NewRateLimiter("save-page", settings.RateLimitMax, settings.RateLimitWindow, deps.Now)

	router.Mount("/api/auth", auth.AuthRouter(auth.AuthHandler{
		Github:        deps.Github,
		Session:       deps.Session,
		ClientID:      gh.ClientID,
		ClientSecret:  gh.ClientSecret,
		AppURL:        settings.AppURL,
		PostLoginPath: settings.PostLoginPath,
		Secure:        settings.SecureCookies(),
	}))
	router.Mount("/api/admin-status", admin.AdminRouter(admin.AdminHandler{
		Github:        deps.Github,
		Owner:         gh.Owner,
		Repo:          gh.Repo,
		TemplateOwner: gh.TemplateOwner,
		TemplateRepo:  gh.TemplateRepo,
	}))
	router.Mount("/api/repo", repo.RepoRouter(repo.RepoHandler{
		Github:        deps.Github,
		TemplateOwner: gh.TemplateOwner,
		TemplateRepo:  gh.TemplateRepo,
	}))
	router.Mount("/api/save-page", page.PageRouter(page.PageHandler{
		Github:      deps.Github,
		Events:      deps.Events,
		ServerToken: gh.Token,
		Owner:       gh.Owner,
		Repo:        gh.Repo,
		Branch:      gh.Branch,
	}, limiter))
	router.Mount("/api/versions", history.HistoryRouter(history.HistoryHandler{
		Resolve: history.LocalStore(deps.Versions),
		Events:  deps.Events,
	}))
	router.Mount("/api/versions-github", history.HistoryRouter(history.HistoryHandler{
		Resolve: history.GithubStore(deps.Github, gh.Token, gh.Owner, gh.Repo, gh.Branch, deps.Now),
		Events:  deps.Events,
	}))

	router.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, HealthResponse{Status: "ok"})
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.HandleError(utils.ErrNotFound, nil, w, r, nil)
	})

	return router
}
