package api

import (
	"context"
	"net/http"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/api/handlers"
	"github.com/FerDeNetlab/auramarket/internal/api/middleware"
	"github.com/FerDeNetlab/auramarket/internal/metrics"
	"github.com/FerDeNetlab/auramarket/pkg/auth"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Deps зависимости HTTP слоя
type Deps struct {
	Hub    handlers.HubService
	Logger interfaces.LoggerPort
	// Health проверяется в /ready, обычно хранилище
	Health interfaces.HealthPort

	CORSAllowedOrigins []string
	RequestTimeout     time.Duration

	// Auth nil отключает проверку токенов
	Auth interfaces.AuthPort
	// Login вход через OIDC, nil если режим не oidc
	Login handlers.LoginProvider

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	// MetricsPath по умолчанию /metrics
	MetricsPath string
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recoverer(d.Logger))
	if d.HTTPMetrics != nil {
		r.Use(middleware.Metrics(d.HTTPMetrics))
	}
	r.Use(middleware.CORS(d.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ready", readyHandler(d.Health, d.Logger))

	if d.MetricsHandler != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, d.MetricsHandler)
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	if d.Login != nil {
		authHandler := handlers.NewAuthHandler(d.Login, d.Logger)
		r.Get("/auth/login", authHandler.Login)
		r.Get("/auth/callback", authHandler.Callback)
	}

	hubHandler := handlers.NewHubHandler(d.Hub, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(d.RequestTimeout))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		mutate := func(h http.HandlerFunc) http.Handler { return h }
		if d.Auth != nil {
			r.Use(auth.AuthMiddleware(d.Auth, d.Logger))
			guard := auth.RequireAnyRole(d.Auth, auth.RoleOperator, auth.RoleAdmin)
			mutate = func(h http.HandlerFunc) http.Handler { return guard(h) }
		}

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", hubHandler.ListProviders)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", hubHandler.GetProvider)
				r.Get("/products", hubHandler.ListProducts)
				r.Method(http.MethodPost, "/sync", mutate(hubHandler.SyncProvider))
				r.Method(http.MethodPost, "/upload", mutate(hubHandler.UploadProvider))
			})
		})

		r.Get("/marketplaces", hubHandler.ListMarketplaces)
		r.Get("/activity", hubHandler.ListActivity)
		r.Get("/stats", hubHandler.GetStats)
		r.Get("/hub", hubHandler.GetHub)

		r.Method(http.MethodPost, "/sync-all", mutate(hubHandler.SyncAll))
		r.Method(http.MethodPost, "/publish-all", mutate(hubHandler.PublishAll))
		r.Method(http.MethodPost, "/refresh", mutate(hubHandler.Refresh))
	})

	return r
}

func readyHandler(health interfaces.HealthPort, logger interfaces.LoggerPort) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				logger.WarnWithContext(r.Context(), "Сервис не готов", "error", err.Error())
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
