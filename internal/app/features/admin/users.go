// internal/app/features/admin/users.go
package admin

import (
	"errors"
	"net/http"

	"github.com/dalemusser/meraki/internal/app/policy/accesspolicy"
	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/app/system/notify"
	"github.com/dalemusser/meraki/internal/app/system/roster"
	"github.com/dalemusser/meraki/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type usersResponse struct {
	Users []roster.UserSummary `json:"users"`
}

// actingUser loads the stored record of the signed-in user. Authorization
// is decided on this record, never on request input.
func (h *Handler) actingUser(r *http.Request) (*models.User, error) {
	p, err := auth.Resolve(r)
	if err != nil {
		return nil, err
	}
	u, err := h.Users.GetByHexID(r.Context(), p.UserID)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load user", err)
	}
	return u, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/users                                                             |
| Every user with today's attendance, sorted by name.                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	acting, err := h.actingUser(r)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	users, err := h.Roster.ListAllUsersWithStatus(r.Context(), *acting)
	if err != nil {
		if errors.Is(err, apperr.ErrAccessDenied) {
			h.Log.Warn("roster access denied",
				zap.String("user_id", acting.ID.Hex()),
				zap.String("position", acting.Position))
		}
		apperr.Write(w, h.Log, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, usersResponse{Users: users})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/users/{id}/reset-password                                        |
| Emails a reset link to the target user.                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	acting, err := h.actingUser(r)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	target, err := h.Users.GetByHexID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, userstore.ErrNotFound) {
		apperr.Write(w, h.Log, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	if err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "failed to load user", err))
		return
	}

	if !accesspolicy.CanResetPasswordFor(*acting, *target) {
		apperr.Write(w, h.Log, apperr.ErrAccessDenied)
		return
	}
	if target.AuthProvider == models.ProviderGoogle && !target.HasPassword() {
		apperr.Write(w, h.Log, apperr.Validation("this user signs in with Google and has no password"))
		return
	}

	if err := h.Resets.Send(r.Context(), *target, notify.ReasonAdmin); err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "failed to send reset email", err))
		return
	}
	h.AuditLog.AdminPasswordResetSent(r.Context(), r, acting.ID.Hex(), target.ID)

	apperr.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset email sent to " + target.Email,
	})
}
