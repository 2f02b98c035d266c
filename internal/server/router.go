// Package server wires handlers, role guards, and ambient middleware into the
// HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	adminhandler "fitlift/backend/internal/admin/handler"
	identityhandler "fitlift/backend/internal/identity/handler"
	"fitlift/backend/internal/platform/rbac"
	"fitlift/backend/internal/server/middleware"
	"fitlift/backend/internal/user/domain"
)

// RouterConfig carries the handlers and guards the router mounts.
type RouterConfig struct {
	Auth     *identityhandler.AuthHandler
	Admin    *adminhandler.AdminHandler
	Resolver rbac.PrincipalResolver
	Log      zerolog.Logger
	// Metrics exposes /metrics and records per-request metrics when true.
	Metrics bool
}

// NewRouter builds the chi router. Public routes: register, login, refresh,
// logout, healthz. Everything else passes through a role guard that reloads
// the caller on every request.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.Prometheus)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
		r.Post("/refresh", cfg.Auth.Refresh)
		r.Post("/logout", cfg.Auth.Logout)
		r.Group(func(r chi.Router) {
			r.Use(rbac.Authenticate(cfg.Resolver))
			r.Get("/me", cfg.Auth.Me)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(rbac.RequireAnyRole(cfg.Resolver, domain.RoleAdmin))
		r.Get("/users", cfg.Admin.ListUsers)
		r.Get("/users/{id}", cfg.Admin.GetUser)
		r.Put("/users/{id}/role", cfg.Admin.UpdateRole)
		r.Delete("/users/{id}", cfg.Admin.DeleteUser)
	})

	return r
}
