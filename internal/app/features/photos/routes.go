// internal/app/features/photos/routes.go
package photos

import "github.com/go-chi/chi/v5"

// Routes serves signed photo links. It is mounted at /media and needs no
// session: the token in the path is the authorization.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.ServePhoto)
	return r
}
