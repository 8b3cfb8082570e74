package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicore/clinicore/internal/access"
	audithttp "github.com/clinicore/clinicore/internal/audit/http"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	RolesHandler   *access.Handler
	UsersHandler   *users.Handler
	AuditHandler   *audithttp.Handler
	AccessMW       access.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Clinicore defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
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

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/roles", func(r chi.Router) {
			params.RolesHandler.MountRoutes(r)
		})
		r.Route("/users", func(r chi.Router) {
			params.UsersHandler.MountRoutes(r)
		})
		r.Route("/logs", func(r chi.Router) {
			params.AuditHandler.MountRoutes(r, params.AccessMW)
		})
	})

	return r
}
