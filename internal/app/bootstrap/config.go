// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devSessionKey is the default session key. It is rejected in production.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for Meraki.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MERAKI_MONGO_URI, MERAKI_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "meraki", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "meraki-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 720h)"},

	// Attendance
	{Name: "attendance_timezone", Default: "UTC", Desc: "IANA time zone that defines the attendance day"},
	{Name: "attendance_store", Default: "mongo", Desc: "Attendance store: 'mongo' or 'memory'"},

	// Media storage
	{Name: "media_backend", Default: "local", Desc: "Photo storage backend: 'local', 's3' or 'memory'"},
	{Name: "media_local_path", Default: "./uploads/media", Desc: "Directory for locally stored photos"},
	{Name: "media_signing_key", Default: "", Desc: "Key for signing local photo links (>= 32 bytes)"},
	{Name: "media_url_ttl", Default: "1h", Desc: "Lifetime of photo links"},
	{Name: "media_max_bytes", Default: 5 << 20, Desc: "Maximum decoded photo size in bytes"},
	{Name: "media_max_pixels", Default: 40_000_000, Desc: "Maximum photo width*height in pixels"},
	{Name: "media_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "media_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "media_s3_prefix", Default: "meraki/", Desc: "S3 key prefix"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs emails instead)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@meraki.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Meraki", Desc: "From display name"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for email and media links"},
	{Name: "site_name", Default: "Meraki", Desc: "Site name used in emails"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Messaging
	{Name: "rabbitmq_url", Default: "", Desc: "RabbitMQ URL for notification events (blank sends in-process)"},
	{Name: "rabbitmq_exchange", Default: "meraki.events", Desc: "RabbitMQ topic exchange"},

	// Rate limiting
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared rate limits (blank keeps them in memory)"},
	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts allowed per IP per minute"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_attendance", Default: "all", Desc: "Attendance event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Advisor bootstrap
	{Name: "advisor_email", Default: "", Desc: "Email of the advisor account (promoted on startup)"},

	// Metrics
	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},
	{Name: "metrics_interval", Default: "1m", Desc: "Attendance gauge refresh interval"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, MERAKI_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MERAKI", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		AttendanceTimezone: appValues.String("attendance_timezone"),
		AttendanceStore:    strings.ToLower(appValues.String("attendance_store")),

		MediaBackend:    strings.ToLower(appValues.String("media_backend")),
		MediaLocalPath:  appValues.String("media_local_path"),
		MediaSigningKey: appValues.String("media_signing_key"),
		MediaURLTTL:     appValues.Duration("media_url_ttl", time.Hour),
		MediaMaxBytes:   int64(appValues.Int("media_max_bytes")),
		MediaMaxPixels:  int64(appValues.Int("media_max_pixels")),
		MediaS3Region:   appValues.String("media_s3_region"),
		MediaS3Bucket:   appValues.String("media_s3_bucket"),
		MediaS3Prefix:   appValues.String("media_s3_prefix"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:  strings.TrimRight(appValues.String("base_url"), "/"),
		SiteName: appValues.String("site_name"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		RabbitMQURL:      appValues.String("rabbitmq_url"),
		RabbitMQExchange: appValues.String("rabbitmq_exchange"),

		RedisAddr:      appValues.String("redis_addr"),
		LoginRateLimit: appValues.Int("login_rate_limit"),

		AuditLogAuth:       appValues.String("audit_log_auth"),
		AuditLogAttendance: appValues.String("audit_log_attendance"),
		AuditLogAdmin:      appValues.String("audit_log_admin"),

		AdvisorEmail: appValues.String("advisor_email"),

		MetricsEnabled:  appValues.Bool("metrics_enabled"),
		MetricsInterval: appValues.Duration("metrics_interval", time.Minute),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Meraki checks the MongoDB URI, the attendance time zone and the media
// backend settings before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if _, err := time.LoadLocation(appCfg.AttendanceTimezone); err != nil {
		return fmt.Errorf("invalid attendance_timezone %q: %w", appCfg.AttendanceTimezone, err)
	}

	switch appCfg.AttendanceStore {
	case "mongo", "memory":
	default:
		return fmt.Errorf("attendance_store must be 'mongo' or 'memory', got %q", appCfg.AttendanceStore)
	}

	switch appCfg.MediaBackend {
	case "memory":
	case "local":
		if len(appCfg.MediaSigningKey) < 32 {
			return fmt.Errorf("media_signing_key must be at least 32 bytes for the local media backend")
		}
	case "s3":
		if appCfg.MediaS3Bucket == "" {
			return fmt.Errorf("media_s3_bucket is required for the s3 media backend")
		}
	default:
		return fmt.Errorf("media_backend must be 'local', 's3' or 'memory', got %q", appCfg.MediaBackend)
	}

	if len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 bytes")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return fmt.Errorf("session_key must be changed in production")
	}

	return nil
}
