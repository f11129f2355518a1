// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/meraki/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations accepted by each Config field.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, registration, password reset).
	Auth string
	// Attendance controls logging for time-in and time-out events.
	Attendance string
	// Admin controls logging for profile and administrative actions.
	Admin string
}

// EventStore persists audit events. audit.Store implements it.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via the EventStore) and structured logs (via zap).
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	// X-Forwarded-For may carry a chain; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

func oidPtr(hex string) *primitive.ObjectID {
	if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
		return &oid
	}
	return nil
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) settingFor(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAttendance:
		s = l.config.Attendance
	case audit.CategoryAdmin:
		s = l.config.Admin
	}
	if s == "" {
		return DestAll
	}
	return s
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.settingFor(event.Category)
	if setting == DestOff {
		return
	}
	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}
	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, provider, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"provider": provider, "email": email},
	})
}

// LoginFailedUserNotFound logs a failed login due to user not found.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedWrongProvider logs a password login for an account that signs
// in through another provider.
func (l *Logger) LoginFailedWrongProvider(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, provider string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongProvider,
		UserID:        &userID,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "account uses " + provider,
		Details:       map[string]string{"email": email, "provider": provider},
	})
}

// LoginFailedRateLimit logs a request rejected by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, limitType string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: "rate limit exceeded",
		Details:       map[string]string{"email": email, "limit_type": limitType},
	})
}

// Logout logs a user logout.
// Accepts the string ID from SessionUser.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    oidPtr(userIDStr),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

// Registered logs the creation of a user, by registration or first Google sign-in.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, provider, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"provider": provider, "email": email},
	})
}

// PasswordResetRequested logs a forgot-password request. userID is nil when
// the email matched no account.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID *primitive.ObjectID, email string) {
	ev := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordResetRequested,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   userID != nil,
		Details:   map[string]string{"email": email},
	}
	if userID == nil {
		ev.FailureReason = "no matching account"
	}
	l.Log(ctx, ev)
}

// PasswordReset logs a completed password reset.
func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordReset,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

// --- Attendance Events ---

func (l *Logger) attendance(ctx context.Context, r *http.Request, eventType, userIDStr, date string, err error) {
	ev := audit.Event{
		Category:  audit.CategoryAttendance,
		EventType: eventType,
		UserID:    oidPtr(userIDStr),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   err == nil,
		Details:   map[string]string{"date": date},
	}
	if err != nil {
		ev.FailureReason = err.Error()
	}
	l.Log(ctx, ev)
}

// TimeIn logs a time-in attempt. err is nil on success.
func (l *Logger) TimeIn(ctx context.Context, r *http.Request, userIDStr, date string, err error) {
	l.attendance(ctx, r, audit.EventTimeIn, userIDStr, date, err)
}

// TimeOut logs a time-out attempt. err is nil on success.
func (l *Logger) TimeOut(ctx context.Context, r *http.Request, userIDStr, date string, err error) {
	l.attendance(ctx, r, audit.EventTimeOut, userIDStr, date, err)
}

// --- Admin Events ---

// ProfileUpdated logs a user editing their own profile.
func (l *Logger) ProfileUpdated(ctx context.Context, r *http.Request, userID primitive.ObjectID, fields ...string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProfileUpdated,
		UserID:    &userID,
		ActorID:   &userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"fields": strings.Join(fields, ",")},
	})
}

// PositionAssigned logs a position set outside a request, such as the
// configured advisor at startup.
func (l *Logger) PositionAssigned(ctx context.Context, userID primitive.ObjectID, position string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventPositionAssigned,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"position": position},
	})
}

// AdminPasswordResetSent logs an elevated user sending a reset link to another user.
func (l *Logger) AdminPasswordResetSent(ctx context.Context, r *http.Request, actorIDStr string, targetID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAdminPasswordResetSent,
		UserID:    &targetID,
		ActorID:   oidPtr(actorIDStr),
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}
