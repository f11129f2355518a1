// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves POST /login.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleLoginPost)
	return r
}

// RegisterRoutes serves POST /register.
func RegisterRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleRegister)
	return r
}
