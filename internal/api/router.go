// 文件路径: internal/api/router.go
// 模块说明: 这是 internal 模块里的 router 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/inboundpanel/internal/api/handler"
	"github.com/creamcroissant/inboundpanel/internal/api/middleware"
	"github.com/creamcroissant/inboundpanel/internal/config"
	"github.com/creamcroissant/inboundpanel/internal/security"
	"github.com/creamcroissant/inboundpanel/internal/service"
	"github.com/creamcroissant/inboundpanel/internal/support/i18n"
)

// 这些路径不计入限流、日志和指标。
var quietPaths = []string{"/health", "/healthz", "/metrics"}

type Services struct {
	Inbounds    service.InboundService
	Packs       service.PackService
	Directory   service.DirectoryService
	Tokens      middleware.TokenParser
	RateLimiter *security.RateLimiter
	I18n        *i18n.Manager
}

// Options 是路由需要的配置片段。Registry 为空时 /metrics 和指标中间件都不挂载。
type Options struct {
	HTTP      config.HTTPConfig
	Metrics   config.MetricsConfig
	RateLimit config.RateLimitConfig
	Registry  *prometheus.Registry
	Now       func() time.Time
}

// NewRouter wires health, metrics and the admin API.
func NewRouter(logger *slog.Logger, services Services, opts Options) http.Handler {
	if services.Inbounds == nil {
		panic("router requires InboundService")
	}
	if services.Packs == nil {
		panic("router requires PackService")
	}
	if services.I18n == nil {
		panic("router requires I18n Manager")
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	metricsEnabled := opts.Metrics.Enabled && opts.Registry != nil
	if metricsEnabled {
		metrics := middleware.NewMetrics(middleware.MetricsConfig{
			Namespace: opts.Metrics.Namespace,
			Subsystem: opts.Metrics.Subsystem,
			SkipPaths: quietPaths,
			Buckets:   opts.Metrics.Buckets,
		}, opts.Registry)
		r.Use(metrics.Middleware())
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.CORS(middleware.DefaultCORSConfig(opts.HTTP.AllowedOrigins...)),
		middleware.BodyLimit(middleware.BodyLimitConfig{
			MaxBytes:  opts.HTTP.MaxBodyBytes,
			SkipPaths: quietPaths,
		}),
	}

	if opts.RateLimit.Enabled && services.RateLimiter != nil {
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:   services.RateLimiter,
			Limit:     opts.RateLimit.Limit,
			Window:    opts.RateLimit.Window,
			SkipPaths: quietPaths,
			Logger:    logger,
		}, services.I18n))
	}

	middlewares = append(middlewares,
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     quietPaths,
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
		middleware.I18n(services.I18n),
	)
	r.Use(middlewares...)

	health := func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     now().UTC().Format(time.RFC3339Nano),
		})
	}
	r.Get("/healthz", health)
	// Alias for Docker health check
	r.Get("/health", health)

	if metricsEnabled {
		metricsHandler := promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{Registry: opts.Registry})
		if opts.Metrics.Token != "" {
			r.With(middleware.MetricsGuard(opts.Metrics.Token)).Handle("/metrics", metricsHandler)
		} else {
			r.Handle("/metrics", metricsHandler)
		}
	}

	registerAdminRoutes(r, logger, services)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}

func registerAdminRoutes(root chi.Router, logger *slog.Logger, services Services) {
	inbounds := handler.NewAdminInboundHandler(services.Inbounds, services.I18n, logger)
	packs := handler.NewAdminPackHandler(services.Packs, services.I18n, logger)

	root.Route("/api/v1/admin", func(admin chi.Router) {
		admin.Use(middleware.AdminGuard(services.Tokens, services.I18n))

		admin.Route("/inbounds", func(r chi.Router) {
			r.Get("/", inbounds.List)
			r.Post("/", inbounds.Create)
			r.Post("/import", inbounds.Import)
			r.Get("/export", inbounds.Export)
			r.Get("/{id}", inbounds.Get)
			r.Put("/{id}", inbounds.Update)
			r.Delete("/{id}", inbounds.Delete)
			r.Get("/{id}/draft", inbounds.Draft)
			r.Post("/{id}/clone", inbounds.Clone)
		})

		admin.Get("/packs", packs.List)
		admin.Post("/packs/{name}", packs.Apply)

		if services.Directory != nil {
			directory := handler.NewAdminDirectoryHandler(services.Directory, services.I18n, logger)
			admin.Post("/users", directory.CreateUser)
			admin.Get("/users/{id}/inbounds", directory.UserInbounds)
			admin.Post("/groups", directory.CreateGroup)
		}
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
