// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (VIBES_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers the framework-level settings: ports, TLS, log level and CORS.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Session lifetime; also the TTL of stored sessions

	// Optional Redis cache for the public stats endpoints
	RedisAddr     string // host:port; blank disables caching
	RedisPassword string
	CacheTTL      time.Duration

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host; blank disables outgoing mail
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address
	MailFromName string // From display name, also used as the site name in mail
	MailTo       string // Inbox that receives contact form messages

	// Password reset
	BaseURL       string        // e.g., "https://positivevibes.example"; reset links point here
	ResetTokenTTL time.Duration // How long an emailed reset link stays valid

	// Audit logging: 'all' (db+log), 'db', 'log', or 'off'
	AuditLogAuth  string
	AuditLogAdmin string

	// Observability
	MetricsUser string // Basic auth for /metrics; blank leaves it open
	MetricsPass string
	SentryDSN   string // blank disables error reporting

	// Site
	StaticDir string // Directory of the web front end served at /; blank disables

	// Background jobs
	StreakSweepSchedule string // cron spec, UTC

	// Timeouts for database work (zero keeps the defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
