// internal/app/features/photos/photos.go
package photos

import (
	"errors"
	"net/http"
	"os"

	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServePhoto handles GET /media/{token}.
func (h *Handler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	full, err := h.Files.Open(chi.URLParam(r, "token"))
	if err != nil {
		apperr.Write(w, h.Log, apperr.New(apperr.NotFound, "photo not found"))
		return
	}

	fi, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) || (err == nil && fi.IsDir()) {
		apperr.Write(w, h.Log, apperr.New(apperr.NotFound, "photo not found"))
		return
	}
	if err != nil {
		h.Log.Error("stat photo failed", zap.Error(err))
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "failed to read photo", err))
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, full)
}
