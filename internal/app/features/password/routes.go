// internal/app/features/password/routes.go
package password

import "github.com/go-chi/chi/v5"

// MountRoutes adds the public password endpoints to the /auth router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/forgot-password", h.HandleForgot)
	r.Post("/reset-password", h.HandleReset)
}
