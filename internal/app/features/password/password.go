// internal/app/features/password/password.go
package password

import (
	"encoding/json"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/authutil"
	"github.com/dalemusser/meraki/internal/app/system/inputval"
	"github.com/dalemusser/meraki/internal/app/system/normalize"
	"github.com/dalemusser/meraki/internal/app/system/notify"
	"go.uber.org/zap"
)

// msgForgotSent is returned whether or not the email belongs to an account.
const msgForgotSent = "If an account exists for that email, a reset link has been sent."

type forgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/forgot-password {email}                                           |
| The response never reveals whether the email is registered.                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, h.Log, apperr.Validation("invalid request body"))
		return
	}
	req.Email = normalize.Email(req.Email)
	if err := inputval.Struct(req); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, req.Email); !ok {
			h.AuditLog.LoginFailedRateLimit(r.Context(), r, req.Email, "forgot_password")
			apperr.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": reason, "code": "rate_limited"})
			return
		}
	}

	ctx := r.Context()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.AuditLog.PasswordResetRequested(ctx, r, nil, req.Email)
	case err != nil:
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "failed to process request", err))
		return
	default:
		h.AuditLog.PasswordResetRequested(ctx, r, &u.ID, req.Email)
		if err := h.Resets.Send(ctx, *u, notify.ReasonSelf); err != nil {
			// Logged only; the response stays the same either way.
			h.Log.Error("failed to send reset email", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}

	apperr.WriteJSON(w, http.StatusOK, map[string]string{"message": msgForgotSent})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/reset-password {token, password}                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, h.Log, apperr.Validation("invalid request body"))
		return
	}
	if err := inputval.Struct(req); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "failed to reset password", err))
		return
	}

	ctx := r.Context()
	u, err := h.Users.ResetPassword(ctx, authutil.HashToken(req.Token), hash, h.now())
	if errors.Is(err, userstore.ErrInvalidResetToken) {
		apperr.Write(w, h.Log, apperr.Validation("This reset link is invalid or has expired."))
		return
	}
	if err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "failed to reset password", err))
		return
	}

	h.AuditLog.PasswordReset(ctx, r, u.ID)
	h.Log.Info("password reset", zap.String("user_id", u.ID.Hex()))
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"message": "Your password has been reset. You can now sign in."})
}
