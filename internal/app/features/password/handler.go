// internal/app/features/password/handler.go
package password

import (
	"context"
	"time"

	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/auditlog"
	"github.com/dalemusser/meraki/internal/app/system/ratelimit"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.uber.org/zap"
)

// ResetSender emails a password reset link. passreset.Service implements it.
type ResetSender interface {
	Send(ctx context.Context, u models.User, reason string) error
}

// Handler owns the forgot and reset password endpoints.
type Handler struct {
	Users    *userstore.Store
	Resets   ResetSender
	Limiter  *ratelimit.LoginLimiter
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	now func() time.Time
}

// NewHandler constructs a password Handler. limiter may be nil.
func NewHandler(users *userstore.Store, resets ResetSender, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Resets:   resets,
		Limiter:  limiter,
		AuditLog: audit,
		Log:      logger,
		now:      time.Now,
	}
}
