// internal/app/features/attendance/handler.go
package attendance

import (
	"github.com/dalemusser/meraki/internal/app/system/auditlog"
	"github.com/dalemusser/meraki/internal/app/system/ledger"
	"go.uber.org/zap"
)

// Handler owns the attendance endpoints.
type Handler struct {
	Ledger   *ledger.Service
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a Handler over the attendance ledger.
func NewHandler(svc *ledger.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger:   svc,
		AuditLog: audit,
		Log:      logger,
	}
}
