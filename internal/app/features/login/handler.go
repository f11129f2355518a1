// internal/app/features/login/handler.go
package login

import (
	"net/http"

	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/auditlog"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/app/system/ratelimit"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.uber.org/zap"
)

// Handler owns credentials sign-in and registration.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

// NewHandler constructs a login Handler. limiter may be nil to disable
// rate limiting.
func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		AuditLog:   audit,
		Log:        logger,
	}
}

// allow applies the login rate limit and writes 429 when it trips.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, email string) bool {
	if h.Limiter == nil {
		return true
	}
	ok, reason := h.Limiter.Check(r, email)
	if ok {
		return true
	}
	h.AuditLog.LoginFailedRateLimit(r.Context(), r, email, "login")
	apperr.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
		"error": reason,
		"code":  "rate_limited",
	})
	return false
}

// userResponse wraps the signed-in user.
type userResponse struct {
	User models.User `json:"user"`
}
