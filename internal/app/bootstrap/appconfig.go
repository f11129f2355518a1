// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// The struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: meraki-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Attendance
	AttendanceTimezone string // IANA zone that defines the calendar day (e.g., Asia/Manila)
	AttendanceStore    string // "mongo" or "memory"

	// Media storage configuration
	MediaBackend    string // "local", "s3" or "memory"
	MediaLocalPath  string // Directory for the local backend
	MediaSigningKey string // HS256 key for local media links
	MediaURLTTL     time.Duration
	MediaMaxBytes   int64
	MediaMaxPixels  int64 // width*height cap checked before decoding

	// S3 configuration (only used if MediaBackend is "s3")
	MediaS3Region string
	MediaS3Bucket string
	MediaS3Prefix string

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (blank logs emails instead of sending)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address (e.g., noreply@meraki.example.org)
	MailFromName string // From display name

	// Base URL for email and media links
	BaseURL  string // e.g., "https://meraki.example.org" or "http://localhost:8080"
	SiteName string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Messaging (blank URL sends notifications in-process)
	RabbitMQURL      string
	RabbitMQExchange string

	// Rate limiting (blank Redis address keeps counters in memory)
	RedisAddr      string
	LoginRateLimit int // attempts per IP per minute

	// Audit logging destinations: all, db, log or off
	AuditLogAuth       string
	AuditLogAttendance string
	AuditLogAdmin      string

	// Advisor bootstrap
	AdvisorEmail string // promoted to advisor on startup when the account exists

	// Metrics
	MetricsEnabled  bool
	MetricsInterval time.Duration // gauge refresh interval
}
