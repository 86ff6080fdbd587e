package billing

import (
	"github.com/go-chi/chi/v5"

	"github.com/marisol-pos/marisol/internal/auth"
	"github.com/marisol-pos/marisol/internal/shared"
)

// MountRoutes registers sale routes. Every mutating operation requires at
// least supervisor privileges.
func (h *Handler) MountRoutes(r chi.Router, authz auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(shared.RoleSeller))
		r.Get("/sales", h.List)
		r.Get("/sales/{batchID}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(shared.RoleSupervisor))
		r.Post("/sales", h.Create)
		r.Put("/sales/{batchID}", h.Edit)
		r.Post("/sales/{batchID}/void", h.Void)
	})
}
