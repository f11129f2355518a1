// internal/app/features/admin/routes.go
package admin

import (
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Advisors, presidents and vice-presidents only.
		pr.Use(sm.RequireElevated)
		pr.Get("/users", h.ServeUsers)
		pr.Post("/users/{id}/reset-password", h.HandleResetPassword)
	})

	return r
}
