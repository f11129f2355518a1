// internal/app/features/profile/handler.go
package profile

import (
	"context"

	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/auditlog"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ProfileStore reads and writes profile fields. userstore.Store implements it.
type ProfileStore interface {
	GetByHexID(ctx context.Context, hex string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, up userstore.ProfileUpdate) (models.User, error)
}

// Handler owns all user profile handlers.
type Handler struct {
	Users    ProfileStore
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a Handler bound to the given user store and logger.
func NewHandler(users ProfileStore, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		AuditLog: audit,
		Log:      logger,
	}
}
