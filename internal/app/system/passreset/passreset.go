// Package passreset issues single-use password reset links and hands them
// to the notification pipeline.
package passreset

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/authutil"
	"github.com/dalemusser/meraki/internal/app/system/notify"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TokenTTL is how long a reset link stays valid.
const TokenTTL = time.Hour

// TokenStore records the digest of an issued token. userstore.Store
// implements it.
type TokenStore interface {
	SetResetToken(ctx context.Context, id primitive.ObjectID, digest string, expiresAt time.Time) error
}

// Service issues reset links.
type Service struct {
	tokens  TokenStore
	pub     notify.Publisher
	baseURL string
	now     func() time.Time
	log     *zap.Logger
}

// New creates a Service. Links point at baseURL + "/reset-password".
func New(tokens TokenStore, pub notify.Publisher, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tokens:  tokens,
		pub:     pub,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		log:     logger,
	}
}

// SetClock overrides the clock. For tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Send stores a fresh token for u, replacing any earlier one, and publishes
// the email. Only the token's digest is persisted.
func (s *Service) Send(ctx context.Context, u models.User, reason string) error {
	token, digest, err := authutil.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.tokens.SetResetToken(ctx, u.ID, digest, s.now().Add(TokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	ev := notify.PasswordResetRequested{
		UserID:    u.ID.Hex(),
		Email:     u.Email,
		Name:      u.Name,
		ResetLink: s.baseURL + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresIn: "1 hour",
		Reason:    reason,
	}
	if err := s.pub.Publish(ctx, notify.KeyPasswordResetRequested, ev); err != nil {
		return fmt.Errorf("publish reset email: %w", err)
	}
	s.log.Info("password reset link issued",
		zap.String("user_id", ev.UserID),
		zap.String("reason", reason))
	return nil
}
