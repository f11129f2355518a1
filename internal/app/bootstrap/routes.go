// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	adminfeature "github.com/dalemusser/meraki/internal/app/features/admin"
	attendancefeature "github.com/dalemusser/meraki/internal/app/features/attendance"
	authgooglefeature "github.com/dalemusser/meraki/internal/app/features/authgoogle"
	healthfeature "github.com/dalemusser/meraki/internal/app/features/health"
	loginfeature "github.com/dalemusser/meraki/internal/app/features/login"
	logoutfeature "github.com/dalemusser/meraki/internal/app/features/logout"
	passwordfeature "github.com/dalemusser/meraki/internal/app/features/password"
	photosfeature "github.com/dalemusser/meraki/internal/app/features/photos"
	profilefeature "github.com/dalemusser/meraki/internal/app/features/profile"
	attendancestore "github.com/dalemusser/meraki/internal/app/store/attendance"
	"github.com/dalemusser/meraki/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/app/system/ledger"
	"github.com/dalemusser/meraki/internal/app/system/mailer"
	"github.com/dalemusser/meraki/internal/app/system/media"
	"github.com/dalemusser/meraki/internal/app/system/media/localstore"
	"github.com/dalemusser/meraki/internal/app/system/media/s3store"
	"github.com/dalemusser/meraki/internal/app/system/notify"
	"github.com/dalemusser/meraki/internal/app/system/passreset"
	"github.com/dalemusser/meraki/internal/app/system/ratelimit"
	"github.com/dalemusser/meraki/internal/app/system/roster"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// attendanceBackend is what both the ledger and the roster read and write.
type attendanceBackend interface {
	ledger.Store
	roster.AttendanceReader
}

// newAttendanceBackend returns the Mongo store, or an in-process one when
// attendance_store is "memory".
func newAttendanceBackend(deps DBDeps, appCfg AppConfig, logger *zap.Logger) attendanceBackend {
	if appCfg.AttendanceStore == "memory" {
		logger.Warn("attendance records are kept in memory and will be lost on restart")
		return attendancestore.NewMemory()
	}
	return attendancestore.New(deps.MerakiMongoDatabase)
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// Meraki applies metrics and session middleware, builds the attendance
// ledger over the configured photo backend, and mounts the JSON feature
// routers: attendance, admin, profile, auth, health and metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MerakiMongoDatabase
	rt := deps.Runtime
	if rt == nil {
		rt = &Runtime{}
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser fetches fresh user data on each request, so position
	// and profile changes take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	users := userstore.New(db)
	auditLog := newAuditLogger(deps, appCfg, logger)

	// Photo storage
	objects, localFiles, err := buildObjectStore(appCfg)
	if err != nil {
		logger.Error("media backend init failed", zap.String("backend", appCfg.MediaBackend), zap.Error(err))
		return nil, err
	}
	photos := media.New(objects, media.Options{
		MaxBytes:  appCfg.MediaMaxBytes,
		MaxPixels: appCfg.MediaMaxPixels,
		URLTTL:    appCfg.MediaURLTTL,
	}, logger)

	// Attendance ledger
	loc, err := time.LoadLocation(appCfg.AttendanceTimezone)
	if err != nil {
		return nil, err
	}
	if rt.Attendance == nil {
		rt.Attendance = newAttendanceBackend(deps, appCfg, logger)
	}
	attendance := rt.Attendance
	ledgerOpts := ledger.Options{Location: loc, Logger: logger}
	if rt.Metrics != nil {
		ledgerOpts.Recorder = rt.Metrics
	}
	ledgerSvc := ledger.New(attendance, photos, ledgerOpts)
	rosterSvc := roster.New(users, attendance, ledgerSvc.Today)

	// Login rate limiting
	var limiter *ratelimit.LoginLimiter
	if deps.Redis != nil {
		limiter = ratelimit.NewRedisLoginLimiter(deps.Redis, appCfg.LoginRateLimit, logger)
	} else {
		limiter = ratelimit.NewMemoryLoginLimiter(appCfg.LoginRateLimit, logger)
	}

	// Password reset notifications
	pub, err := buildPublisher(appCfg, logger)
	if err != nil {
		logger.Error("notification publisher init failed", zap.Error(err))
		return nil, err
	}
	rt.Publisher = pub
	resets := passreset.New(users, pub, appCfg.BaseURL, logger)

	r := chi.NewRouter()

	if rt.Metrics != nil {
		r.Use(rt.Metrics.Middleware)
	}

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics.Handler())
	}

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MerakiMongoClient, Version, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Signed links for locally stored photos
	if localFiles != nil {
		photosHandler := photosfeature.NewHandler(localFiles, logger)
		r.Mount("/media", photosfeature.Routes(photosHandler))
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(users, sessionMgr, limiter, auditLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Mount("/register", loginfeature.RegisterRoutes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	passwordHandler := passwordfeature.NewHandler(users, resets, limiter, auditLog, logger)
	r.Route("/auth", func(ar chi.Router) {
		passwordfeature.MountRoutes(ar, passwordHandler)

		if appCfg.GoogleClientID != "" {
			googleHandler := authgooglefeature.NewHandler(users, oauthstate.New(db), sessionMgr, auditLog,
				appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
			ar.Mount("/google", authgooglefeature.Routes(googleHandler))
		} else {
			logger.Info("google sign-in disabled: google_client_id not set")
		}
	})

	// Attendance
	attendanceHandler := attendancefeature.NewHandler(ledgerSvc, auditLog, logger)
	r.Mount("/attendance", attendancefeature.Routes(attendanceHandler, sessionMgr))

	// Profile
	profileHandler := profilefeature.NewHandler(users, auditLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Administration (elevated positions only)
	adminHandler := adminfeature.NewHandler(rosterSvc, users, resets, auditLog, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler, sessionMgr))

	return r, nil
}

// buildObjectStore returns the configured photo backend. The local backend
// is also returned as the second value so its links can be served.
func buildObjectStore(appCfg AppConfig) (media.ObjectStore, *localstore.Store, error) {
	switch appCfg.MediaBackend {
	case "local":
		s, err := localstore.New(appCfg.MediaLocalPath, []byte(appCfg.MediaSigningKey), appCfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := s3store.New(ctx, s3store.Config{
			Region: appCfg.MediaS3Region,
			Bucket: appCfg.MediaS3Bucket,
			Prefix: appCfg.MediaS3Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "memory":
		return media.NewMemoryStore(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown media backend %q", appCfg.MediaBackend)
}

// buildPublisher sends notification events to RabbitMQ when configured.
// Otherwise they are handled in-process by the mail handler.
func buildPublisher(appCfg AppConfig, logger *zap.Logger) (notify.Publisher, error) {
	if appCfg.RabbitMQURL != "" {
		pub, err := notify.NewRabbit(appCfg.RabbitMQURL, appCfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		logger.Info("publishing notifications to RabbitMQ", zap.String("exchange", appCfg.RabbitMQExchange))
		return pub, nil
	}
	return notify.NewDirect(notify.NewHandler(NewMailSender(appCfg, logger), appCfg.SiteName, logger)), nil
}

// NewMailSender returns an SMTP mailer, or a sender that only logs when no
// SMTP host is configured.
func NewMailSender(appCfg AppConfig, logger *zap.Logger) mailer.Sender {
	if appCfg.MailSMTPHost == "" {
		logger.Warn("mail_smtp_host not set; emails will be logged, not sent")
		return mailer.LogSender{Logger: logger}
	}
	return mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
}
