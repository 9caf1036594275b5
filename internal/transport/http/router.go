package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"erplens/internal/config"
	"erplens/internal/dataset"
	apperrors "erplens/internal/errors"
	"erplens/internal/infrastructure"
	"erplens/internal/middleware"
)

// NewRouter assembles the full HTTP surface: middleware chain, analyze
// routes, health and the metrics scrape endpoint.
func NewRouter(cfg *config.Config, service AnalysisService, metrics *infrastructure.Metrics, version string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	loader := dataset.NewLoader(cfg.Loader.MaxFileSizeMB, cfg.Loader.MaxRows)
	analyze := NewAnalyzeHandler(service, loader, logger)
	health := NewHealthHandler(version)

	errHandler := apperrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.HTTPMetrics(metrics))

	if cfg.Security.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if cfg.Security.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, logger)
		r.Use(limiter.Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
		r.Mount("/", analyze.Routes())
		r.Get("/health", health.Get)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	return r
}
