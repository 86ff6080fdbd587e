package reporting

import (
	"github.com/go-chi/chi/v5"

	"github.com/marisol-pos/marisol/internal/auth"
	"github.com/marisol-pos/marisol/internal/shared"
)

// MountRoutes registers the reporting routes.
func (h *Handler) MountRoutes(r chi.Router, authz auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(shared.RoleSeller))
		r.Get("/reports/monthly", h.Monthly)
	})
}
