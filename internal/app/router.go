package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marisol-pos/marisol/internal/auth"
	"github.com/marisol-pos/marisol/internal/billing"
	"github.com/marisol-pos/marisol/internal/catalog"
	"github.com/marisol-pos/marisol/internal/reporting"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthMiddleware   auth.Middleware
	CatalogHandler   *catalog.Handler
	BillingHandler   *billing.Handler
	ReportingHandler *reporting.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r, params.AuthMiddleware)
		}
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(r, params.AuthMiddleware)
		}
		if params.ReportingHandler != nil {
			params.ReportingHandler.MountRoutes(r, params.AuthMiddleware)
		}
	})

	return r
}
