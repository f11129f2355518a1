// internal/app/features/attendance/routes.go
package attendance

import (
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleSubmit)
		pr.Get("/today", h.ServeToday)
	})

	return r
}
