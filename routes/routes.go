package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/team-registration/docs"
	"github.com/Dosada05/team-registration/handlers"
	"github.com/Dosada05/team-registration/metrics"
	"github.com/Dosada05/team-registration/middleware"
	"github.com/Dosada05/team-registration/models"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Teams        *handlers.TeamHandler
	Registration *handlers.RegistrationHandler
	Bracket      *handlers.BracketHandler
	Health       *handlers.HealthHandler
}

type Options struct {
	AllowedOrigins []string
	Authenticator  *middleware.Authenticator
	RegisterLimit  *middleware.RateLimiter
	LoginLimit     *middleware.RateLimiter
	Recorder       *metrics.Recorder
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(opts.Recorder.Middleware)

	auth := opts.Authenticator
	adminOnly := func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(models.RoleAdmin, models.RoleSuperadmin))
	}

	router.Get("/healthz", h.Health.Healthz)
	router.Method(http.MethodGet, "/metrics", opts.Recorder.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/auth", func(r chi.Router) {
		r.With(limit(opts.LoginLimit)).Post("/login", h.Auth.Login)
	})

	router.Route("/admins", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(models.RoleSuperadmin))
		r.Post("/", h.Auth.CreateAdmin)
	})

	router.Route("/registration", func(r chi.Router) {
		r.Get("/", h.Registration.Get)
		r.Group(func(r chi.Router) {
			adminOnly(r)
			r.Put("/", h.Registration.Update)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.With(auth.OptionalAuthenticate).Get("/", h.Teams.List)
		r.With(limit(opts.RegisterLimit)).Post("/", h.Teams.Register)

		r.Route("/code/{code}", func(r chi.Router) {
			r.Use(limit(opts.LoginLimit))
			r.Get("/", h.Teams.GetByCode)
			r.Put("/", h.Teams.UpdateByCode)
			r.Delete("/", h.Teams.DeleteByCode)
		})

		r.Group(func(r chi.Router) {
			adminOnly(r)
			r.Get("/export", h.Teams.Export)
			r.Post("/bulk", h.Teams.BulkCreate)
			r.Delete("/", h.Teams.Clear)
			r.Patch("/{teamID}/status", h.Teams.SetStatus)
			r.Delete("/{teamID}", h.Teams.Delete)
		})
	})

	router.Route("/bracket", func(r chi.Router) {
		r.Get("/", h.Bracket.GetBracket)
		r.Get("/estimate", h.Bracket.Estimate)
		r.Post("/preview", h.Bracket.Preview)

		r.Group(func(r chi.Router) {
			adminOnly(r)
			r.Post("/", h.Bracket.Generate)
			r.Delete("/", h.Bracket.Clear)
			r.Post("/shuffle", h.Bracket.Shuffle)
			r.Post("/swap", h.Bracket.Swap)
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		adminOnly(r)
		r.Post("/result", h.Bracket.RecordResult)
		r.Patch("/", h.Bracket.UpdateMatch)
	})
}

func limit(l *middleware.RateLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.Middleware
}
