package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/crowdfund-backend/internal/api/handlers"
	"github.com/baharkarakas/crowdfund-backend/internal/api/httpx"
	"github.com/baharkarakas/crowdfund-backend/internal/auth"
	"github.com/baharkarakas/crowdfund-backend/internal/config"
	"github.com/baharkarakas/crowdfund-backend/internal/metrics"
	"github.com/baharkarakas/crowdfund-backend/internal/middleware"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/services"
)

type RouterDeps struct {
	Cfg       config.Config
	Tokens    *auth.TokenManager
	UserSvc   *services.UserService
	ProjSvc   *services.ProjectService
	BudgetSvc *services.BudgetService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.TokenHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authMW := middleware.NewAuthMiddleware(d.Tokens)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	ah := handlers.NewAuthHandler(d.UserSvc, !d.Cfg.IsProd())
	ph := handlers.NewProjectHandler(d.ProjSvc, d.BudgetSvc)

	r.Route("/api", func(r chi.Router) {
		// ---------- auth ----------
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", ah.Signup)
			r.Post("/login", ah.Login)
			r.Get("/{id}/account_confirmation", ah.ConfirmAccount)
			r.Put("/request-password-reset-token", ah.RequestPasswordReset)
			r.Put("/reset-auth-password", ah.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authMW.Auth)
				r.Get("/", ah.Me)
				r.Put("/update-auth", ah.ToggleAdmin)

				r.With(adminOnly).Get("/users", ah.ListUsers)
				r.With(adminOnly).Delete("/users", ah.DeleteUsers)
				r.With(adminOnly).Get("/audit-logs", ah.AuditLogs)
			})
		})

		// ---------- projects ----------
		r.Route("/projects", func(r chi.Router) {
			r.Use(authMW.Auth)
			r.Post("/", ph.Create)
			r.Put("/", ph.Update)
			r.Get("/", ph.List)
			r.With(adminOnly).Delete("/", ph.Delete)

			r.Put("/{id}/budgets", ph.SetBudget)
			r.Put("/{projectId}/budgets/{budgetId}", ph.UpdateLineItem)
			r.Delete("/{projectId}/budgets/{budgetId}", ph.RemoveLineItem)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}
