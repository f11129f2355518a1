package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/meraki/internal/app/system/mailer"
	"go.uber.org/zap"
)

// Handler turns notification messages into email.
type Handler struct {
	sender   mailer.Sender
	siteName string
	logger   *zap.Logger
}

// NewHandler creates a Handler that sends through sender.
func NewHandler(sender mailer.Sender, siteName string, logger *zap.Logger) *Handler {
	return &Handler{sender: sender, siteName: siteName, logger: logger}
}

// Handle processes one message body published under key.
func (h *Handler) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case KeyPasswordResetRequested:
		var ev PasswordResetRequested
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrPermanent, key, err)
		}
		return h.passwordReset(ctx, ev)
	default:
		h.logger.Warn("dropping notification with unknown routing key", zap.String("key", key))
		return fmt.Errorf("%w: unknown routing key %q", ErrPermanent, key)
	}
}

func (h *Handler) passwordReset(ctx context.Context, ev PasswordResetRequested) error {
	if ev.Email == "" || ev.ResetLink == "" {
		return fmt.Errorf("%w: password reset event missing email or link", ErrPermanent)
	}
	msg := mailer.BuildPasswordResetEmail(mailer.PasswordResetEmailData{
		SiteName:  h.siteName,
		Name:      ev.Name,
		ResetLink: ev.ResetLink,
		ExpiresIn: ev.ExpiresIn,
	})
	msg.To = ev.Email
	if err := h.sender.Send(ctx, msg); err != nil {
		return err
	}
	h.logger.Info("password reset email sent",
		zap.String("user_id", ev.UserID),
		zap.String("reason", ev.Reason))
	return nil
}
