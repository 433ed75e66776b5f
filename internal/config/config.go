// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	appValidation "github.com/allisson/btsguard/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	// StateDir is the root directory for configuration history, keystore, audit log and backups.
	StateDir string

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// YateConfigPath is the live configuration file read by the base-station service.
	YateConfigPath string
	// YateTLSCertPath is where the active certificate is materialized on apply.
	YateTLSCertPath string
	// YateTLSKeyPath is where the active private key is materialized on apply.
	YateTLSKeyPath string
	// YateReloadCommand asks the service to re-read its configuration.
	YateReloadCommand string
	// YateStatusCommand reports whether the service is healthy; a non-zero exit means rejected.
	YateStatusCommand string
	// YateCommandTimeout bounds each reload or status command.
	YateCommandTimeout time.Duration

	// KMSKeyURI is the URI for the key wrapping the keystore data key.
	KMSKeyURI string
	// KeystoreAlgorithm is the AEAD used to seal private keys at rest.
	KeystoreAlgorithm string

	// CertValidity is the default validity of generated certificates.
	CertValidity time.Duration
	// CertOverlap is how long a superseded certificate stays usable after rotation.
	CertOverlap time.Duration
	// CertExpiryWarning is the window used by the dashboard to flag expiring certificates.
	CertExpiryWarning time.Duration
	// CertCommonName is the default subject common name.
	CertCommonName string
	// CertOrganization is the default subject organization.
	CertOrganization string
	// CertCountry is the default subject country.
	CertCountry string

	// LockoutMaxAttempts is the maximum number of failed login attempts before a lockout.
	LockoutMaxAttempts int
	// LockoutDuration is the duration for which an identity is locked out after maximum attempts.
	LockoutDuration time.Duration
	// AuthRateLimitPerSec is the number of authentication attempts allowed per second per identity.
	AuthRateLimitPerSec float64
	// AuthRateLimitBurst is the burst size for authentication attempts per identity.
	AuthRateLimitBurst int

	// AuditRetryMaxElapsed bounds the retries of a failing audit append.
	AuditRetryMaxElapsed time.Duration

	// MonitorInterval is the metrics sampling period.
	MonitorInterval time.Duration
	// MonitorCollectTimeout bounds each individual metrics collector.
	MonitorCollectTimeout time.Duration

	// MetricsEnabled indicates whether the Prometheus endpoint is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsHost is the host address the metrics server binds to.
	MetricsHost string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		StateDir: env.GetString("STATE_DIR", "/var/lib/btsguard"),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Managed service
		YateConfigPath:     env.GetString("YATE_CONFIG_PATH", "/etc/yate/yate.conf"),
		YateTLSCertPath:    env.GetString("YATE_TLS_CERT_PATH", "/etc/yate/certs/public_cert.pem"),
		YateTLSKeyPath:     env.GetString("YATE_TLS_KEY_PATH", "/etc/yate/certs/private_key.pem"),
		YateReloadCommand:  env.GetString("YATE_RELOAD_COMMAND", "systemctl reload yate"),
		YateStatusCommand:  env.GetString("YATE_STATUS_COMMAND", "systemctl is-active --quiet yate"),
		YateCommandTimeout: env.GetDuration("YATE_COMMAND_TIMEOUT_SECONDS", 10, time.Second),

		// Keystore
		KMSKeyURI:         env.GetString("KMS_KEY_URI", ""),
		KeystoreAlgorithm: env.GetString("KEYSTORE_ALGORITHM", "chacha20-poly1305"),

		// Certificates
		CertValidity:      env.GetDuration("CERT_VALIDITY_DAYS", 365, 24*time.Hour),
		CertOverlap:       env.GetDuration("CERT_OVERLAP_HOURS", 72, time.Hour),
		CertExpiryWarning: env.GetDuration("CERT_EXPIRY_WARNING_DAYS", 30, 24*time.Hour),
		CertCommonName:    env.GetString("CERT_COMMON_NAME", "yatebts.local"),
		CertOrganization:  env.GetString("CERT_ORGANIZATION", "YateBTS"),
		CertCountry:       env.GetString("CERT_COUNTRY", "US"),

		// Account Lockout
		LockoutMaxAttempts:  env.GetInt("LOCKOUT_MAX_ATTEMPTS", 3),
		LockoutDuration:     env.GetDuration("LOCKOUT_DURATION_SECONDS", 300, time.Second),
		AuthRateLimitPerSec: env.GetFloat64("AUTH_RATE_LIMIT_PER_SEC", 1.0),
		AuthRateLimitBurst:  env.GetInt("AUTH_RATE_LIMIT_BURST", 5),

		// Audit
		AuditRetryMaxElapsed: env.GetDuration("AUDIT_RETRY_MAX_ELAPSED_SECONDS", 5, time.Second),

		// Monitoring
		MonitorInterval:       env.GetDuration("MONITOR_INTERVAL_SECONDS", 1, time.Second),
		MonitorCollectTimeout: env.GetDuration("MONITOR_COLLECT_TIMEOUT_MS", 500, time.Millisecond),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", false),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "btsguard"),
		MetricsHost:      env.GetString("METRICS_HOST", "127.0.0.1"),
		MetricsPort:      env.GetInt("METRICS_PORT", 9091),
	}
}

// Validate checks the values that would otherwise fail deep inside a store.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.StateDir, validation.Required, appValidation.NotBlank),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.KeystoreAlgorithm, validation.In("aes-gcm", "chacha20-poly1305")),
		validation.Field(&c.CertValidity, validation.Required, validation.Min(time.Hour)),
		validation.Field(&c.CertCountry, validation.Length(2, 2)),
		validation.Field(&c.LockoutMaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.AuthRateLimitBurst, validation.Required, validation.Min(1)),
		validation.Field(&c.MonitorInterval, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.MetricsPort, validation.Min(1), validation.Max(65535)),
	)
	return appValidation.WrapValidationError(err)
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// ConfigDir holds the current pointer and the version history.
func (c *Config) ConfigDir() string { return filepath.Join(c.StateDir, "config") }

// KeystoreDir holds certificate records and sealed private keys.
func (c *Config) KeystoreDir() string { return filepath.Join(c.StateDir, "keystore") }

// KeystoreKeyPath is the KMS-wrapped data key sealing the private keys.
func (c *Config) KeystoreKeyPath() string { return filepath.Join(c.KeystoreDir(), "keystore.key") }

// BackupDir holds snapshot archives.
func (c *Config) BackupDir() string { return filepath.Join(c.StateDir, "backups") }

// AuditDBPath is the bbolt file holding the audit trail.
func (c *Config) AuditDBPath() string { return filepath.Join(c.StateDir, "audit.db") }

// OperatorsPath is the operator credential file.
func (c *Config) OperatorsPath() string { return filepath.Join(c.StateDir, "operators.json") }

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
