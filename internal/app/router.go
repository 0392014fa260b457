package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/declaro-app/declaro/internal/auth"
	"github.com/declaro-app/declaro/internal/expenses"
	"github.com/declaro-app/declaro/internal/observability"
	"github.com/declaro-app/declaro/internal/organizations"
	"github.com/declaro-app/declaro/internal/reporting"
	"github.com/declaro-app/declaro/internal/shared"
	"github.com/declaro-app/declaro/internal/users"
	"github.com/declaro-app/declaro/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	ExpensesHandler      *expenses.Handler
	OrganizationsHandler *organizations.Handler
	ReportingHandler     *reporting.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Declaro defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	r.Route("/api/expenses", params.ExpensesHandler.MountRoutes)
	if params.OrganizationsHandler != nil {
		r.Route("/api/organizations", params.OrganizationsHandler.MountRoutes)
	}
	if params.ReportingHandler != nil {
		r.Route("/api/reports", params.ReportingHandler.MountRoutes)
	}
	r.Route("/jobs", params.JobHandler.MountRoutes)
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
