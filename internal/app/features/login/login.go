// internal/app/features/login/login.go
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

// Messages shown for rejected sign-ins. Unknown email and wrong password
// share one message so accounts cannot be enumerated.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgUseGoogle          = "This account uses Google sign-in. Please continue with Google."
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login {email, password}                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, h.Log, apperr.Validation("invalid request body"))
		return
	}
	req.Email = normalize.Email(req.Email)
	if err := inputval.Struct(req); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	if !h.allow(w, r, req.Email) {
		return
	}

	ctx := r.Context()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, req.Email)
		apperr.Write(w, h.Log, apperr.New(apperr.Unauthenticated, msgInvalidCredentials))
		return
	}
	if err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "sign-in failed", err))
		return
	}

	if !u.HasPassword() {
		h.AuditLog.LoginFailedWrongProvider(ctx, r, u.ID, req.Email, u.AuthProvider)
		apperr.Write(w, h.Log, apperr.New(apperr.Unauthenticated, msgUseGoogle))
		return
	}
	if !authutil.CheckPassword(*u.PasswordHash, req.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, req.Email)
		apperr.Write(w, h.Log, apperr.New(apperr.Unauthenticated, msgInvalidCredentials))
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "sign-in failed", err))
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(ctx, req.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, models.ProviderCredentials, req.Email)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()), zap.String("provider", models.ProviderCredentials))

	apperr.WriteJSON(w, http.StatusOK, userResponse{User: *u})
}
