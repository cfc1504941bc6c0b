package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fjmerc/fileshare/internal/auth"
	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/lifecycle"
	"github.com/fjmerc/fileshare/internal/metrics"
	"github.com/fjmerc/fileshare/internal/middleware"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/storage"
	"github.com/fjmerc/fileshare/internal/utils"
)

// RouterDeps holds everything the HTTP routes are built from.
type RouterDeps struct {
	Config    *config.Config
	Manager   *lifecycle.Manager
	Auth      *auth.Service
	Files     repository.FileRepository
	Backend   storage.Backend
	Limiter   *middleware.RateLimiter // nil disables rate limiting
	StartTime time.Time

	// Metrics serves /metrics; nil uses the default Prometheus registry.
	Metrics http.Handler
}

// NewRouter builds the chi router with the middleware chain and all routes.
func NewRouter(deps RouterDeps) (http.Handler, error) {
	cfg := deps.Config

	// File streams are never compressed: only JSON bodies are eligible.
	gz, err := gzhttp.NewWrapper(
		gzhttp.ContentTypes([]string{"application/json"}),
		gzhttp.MinSize(1024),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip wrapper: %w", err)
	}
	compress := func(next http.Handler) http.Handler {
		return gz(next)
	}

	limit := func(class string, n int) func(http.Handler) http.Handler {
		if deps.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return deps.Limiter.Limit(class, n)
	}

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	trust, err := utils.ParseProxyTrust(cfg.TrustProxyHeaders, cfg.TrustedProxyIPs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RecoveryMiddleware,
		middleware.ClientIP(trust),
		middleware.LoggingMiddleware,
		middleware.SecurityHeadersMiddleware,
		metrics.Middleware,
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, "Not found", "NOT_FOUND", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
	})

	r.Get("/health", HealthHandler(deps.Files, deps.Backend, deps.StartTime))
	r.Get("/health/live", LivenessHandler(deps.Files))
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(compress)
		r.Post("/register", RegisterHandler(deps.Auth))
		r.Post("/login", LoginHandler(deps.Auth))
		r.With(middleware.UserAuth(deps.Auth)).Get("/me", MeHandler())

		profile := UpdateProfileHandler(deps.Auth)
		r.With(middleware.UserAuth(deps.Auth)).Patch("/profile", profile)
		r.With(middleware.UserAuth(deps.Auth)).Put("/profile", profile)
		r.With(middleware.UserAuth(deps.Auth)).Post("/change-password", ChangePasswordHandler(deps.Auth))
	})

	r.Route("/api/files", func(r chi.Router) {
		r.Use(middleware.OptionalUserAuth(deps.Auth))

		r.With(limit("upload", cfg.RateLimitUpload), compress).
			Post("/upload", UploadHandler(deps.Manager, cfg))
		r.With(limit("upload", cfg.RateLimitUpload), compress).
			Post("/upload-multiple", UploadMultipleHandler(deps.Manager, cfg))
		r.With(middleware.UserAuth(deps.Auth), compress).
			Get("/my-files", MyFilesHandler(deps.Manager))

		r.Route("/{id}", func(r chi.Router) {
			info := FileInfoHandler(deps.Manager)
			r.With(compress).Get("/info", info)
			r.With(compress).Post("/info", info)

			download := ContentHandler(deps.Manager, lifecycle.ModeDownload)
			r.With(limit("download", cfg.RateLimitDownload)).Get("/download", download)
			r.With(limit("download", cfg.RateLimitDownload)).Post("/download", download)
			r.With(limit("download", cfg.RateLimitDownload)).
				Get("/preview", ContentHandler(deps.Manager, lifecycle.ModePreview))

			owner := r.With(middleware.UserAuth(deps.Auth), compress)
			update := UpdateFileHandler(deps.Manager)
			owner.Patch("/", update)
			owner.Put("/", update)
			owner.Delete("/", DeleteFileHandler(deps.Manager))
		})
	})

	return r, nil
}
