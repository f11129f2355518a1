// internal/app/features/admin/handler.go
package admin

import (
	"context"

	"github.com/dalemusser/meraki/internal/app/system/auditlog"
	"github.com/dalemusser/meraki/internal/app/system/roster"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.uber.org/zap"
)

// UserGetter loads a user by hex ID. userstore.Store implements it.
type UserGetter interface {
	GetByHexID(ctx context.Context, hex string) (*models.User, error)
}

// ResetSender emails a password reset link. passreset.Service implements it.
type ResetSender interface {
	Send(ctx context.Context, u models.User, reason string) error
}

// Handler owns the administrator endpoints.
type Handler struct {
	Roster   *roster.Service
	Users    UserGetter
	Resets   ResetSender
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs an admin Handler.
func NewHandler(rs *roster.Service, users UserGetter, resets ResetSender, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Roster:   rs,
		Users:    users,
		Resets:   resets,
		AuditLog: audit,
		Log:      logger,
	}
}
