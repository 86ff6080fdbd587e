package catalog

import (
	"github.com/go-chi/chi/v5"

	"github.com/marisol-pos/marisol/internal/auth"
	"github.com/marisol-pos/marisol/internal/shared"
)

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router, authz auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(shared.RoleSeller))
		r.Get("/items", h.List)
		r.Get("/items/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(shared.RoleSupervisor))
		r.Post("/items", h.Create)
		r.Put("/items/{id}", h.Update)
	})
}
