// internal/app/features/login/register.go
package login

import (
	"encoding/json"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/authutil"
	"github.com/dalemusser/meraki/internal/app/system/inputval"
	"github.com/dalemusser/meraki/internal/app/system/normalize"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.uber.org/zap"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /register {name, email, password}                                       |
| Creates a credentials user and signs them in.                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, h.Log, apperr.Validation("invalid request body"))
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	if err := inputval.Struct(req); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	if !h.allow(w, r, req.Email) {
		return
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "registration failed", err))
		return
	}

	ctx := r.Context()
	u, err := h.Users.CreateCredentials(ctx, req.Name, req.Email, hash)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		apperr.Write(w, h.Log, apperr.Validation(h.duplicateMessage(r, req.Email)))
		return
	}
	if err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "registration failed", err))
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "registration failed", err))
		return
	}
	h.AuditLog.Registered(ctx, r, u.ID, models.ProviderCredentials, u.Email)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	apperr.WriteJSON(w, http.StatusCreated, userResponse{User: u})
}

// duplicateMessage points Google users at the right sign-in method.
func (h *Handler) duplicateMessage(r *http.Request, email string) string {
	existing, err := h.Users.GetByEmail(r.Context(), email)
	if err == nil && existing.AuthProvider == models.ProviderGoogle && !existing.HasPassword() {
		return "An account with this email already exists. Please sign in with Google."
	}
	return "An account with this email already exists."
}
