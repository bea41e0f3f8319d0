package routes

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/handlers"
	"github.com/BradenHooton/backupsui/internal/middleware"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Config holds what the router needs besides the handlers
type Config struct {
	Env                     string
	Logger                  *slog.Logger
	IPResolver              *pkghttp.ClientIPResolver
	Sessions                auth.SessionVerifier
	LoginRateLimitPerMinute int
}

// Handlers groups the HTTP handlers served by the panel
type Handlers struct {
	Auth    *handlers.AuthHandler
	Backups *handlers.BackupHandler
	Pages   *handlers.PageHandler
}

// NewRouter builds the middleware chain and registers all routes.
// Every route sits behind the session gate; the gate itself decides which
// paths are public.
func NewRouter(cfg Config, h Handlers) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middleware.SecureLogger(cfg.Logger, cfg.IPResolver))
	router.Use(chimiddleware.Recoverer)
	router.Use(auth.RouteGate(cfg.Sessions, auth.DefaultGateConfig()))

	RegisterRoutes(router, cfg, h)
	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, cfg Config, h Handlers) {
	rateLimitConfig := middleware.DefaultLoginRateLimit()
	if cfg.LoginRateLimitPerMinute > 0 {
		rateLimitConfig.RequestsPerMinute = cfg.LoginRateLimitPerMinute
	}
	rateLimitConfig.IPResolver = cfg.IPResolver
	loginLimit := middleware.RateLimitByIP(rateLimitConfig)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Not found")
	})

	// Public
	router.Get("/healthz", handlers.Health)
	router.Handle("/static/*", handlers.StaticFiles())
	router.Get("/login", h.Pages.Login)

	router.Group(func(r chi.Router) {
		r.Use(loginLimit)
		r.Post("/api/login", h.Auth.Login)
		r.Get("/api/login", h.Auth.MagicLogin)
		r.Post("/api/login/generate-token", h.Auth.GenerateToken)
	})

	// Session required
	router.Get("/", h.Pages.Home)
	router.Post("/api/logout", h.Auth.Logout)
	router.Get("/api/list", h.Backups.List)
	router.Post("/api/backup", h.Backups.Create)
	router.Post("/api/restore", h.Backups.Restore)
	router.Post("/api/download", h.Backups.Download)
	router.Post("/api/upload", h.Backups.Upload)
	router.Get("/api/schedule", h.Backups.Schedule)
}
