package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Token signing
	AccessSecret   string        // Required: HMAC secret for access tokens
	RefreshSecret  string        // Required: distinct HMAC secret for refresh tokens
	FingerprintKey string        // Required: key for revocation/CSRF fingerprints
	Issuer         string        // Issuer claim, validated on every verify (default: storefront-gateway)
	Audience       string        // Audience claim, validated on every verify (default: storefront-api)
	AccessTTL      time.Duration // Access token lifetime (default: 15m)
	RefreshTTL     time.Duration // Refresh token lifetime (default: 720h)
	ClockSkew      time.Duration // Leeway for clock drift between issuers (default: 30s)

	// Shared cache
	RedisAddr     string // Optional: host:port; empty runs on the in-process store only
	RedisPassword string
	RedisDB       int
	SweepInterval time.Duration // Memory store sweep cadence (default: 1m)

	// Brute force lockout
	BruteForceThreshold int64         // Consecutive failures before locking (default: 3)
	BruteForceWindow    time.Duration // Tracking window and first block duration (default: 15m)
	BruteForceMaxBlock  time.Duration // Backoff cap (default: 24h)

	// IP reputation
	ReputationThreshold int64         // Suspicion count before blocking (default: 5)
	ReputationWindow    time.Duration // Suspicion tracking window (default: 1h)
	ReputationBlock     time.Duration // Block duration once crossed (default: 1h)

	// CSRF
	CSRFTTL        time.Duration // Token lifetime (default: 1h)
	CSRFCookieName string        // Cookie name (default: csrf_token)
	CSRFStrictIP   bool          // Reject tokens presented from a new address (default: false)

	// Audit
	AuditMaxBodySize    int           // Captured body cap in bytes (default: 4096)
	AuditExcludePaths   []string      // Path prefixes exempt from auditing
	AuditExcludeMethods []string      // Methods exempt from auditing
	AuditExcludeHeaders []string      // Headers dropped from snapshots
	AuditPIIFields      []string      // Extra field names to redact
	AuditBufferSize     int           // Events buffered before a forced flush (default: 100)
	AuditFlushInterval  time.Duration // Periodic flush cadence (default: 10s)
	AuditSpoolFile      string        // Optional: SQLite spool path; empty disables the spool sink
	AuditRetention      time.Duration // Spool retention horizon (default: 720h)

	// Platform internal API
	PlatformBaseURL    string // Required: base URL of the storefront platform's internal API
	PlatformServiceKey string // Required: shared key for internal API calls

	// Server
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		AccessSecret:   os.Getenv("GATEWAY_ACCESS_SECRET"),
		RefreshSecret:  os.Getenv("GATEWAY_REFRESH_SECRET"),
		FingerprintKey: os.Getenv("GATEWAY_FINGERPRINT_KEY"),
		Issuer:         getEnvOrDefault("GATEWAY_ISSUER", "storefront-gateway"),
		Audience:       getEnvOrDefault("GATEWAY_AUDIENCE", "storefront-api"),
		AccessTTL:      getEnvDurationOrDefault("GATEWAY_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:     getEnvDurationOrDefault("GATEWAY_REFRESH_TTL", 30*24*time.Hour),
		ClockSkew:      getEnvDurationOrDefault("GATEWAY_CLOCK_SKEW", 30*time.Second),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		SweepInterval: getEnvDurationOrDefault("CACHE_SWEEP_INTERVAL", time.Minute),

		BruteForceThreshold: int64(getEnvIntOrDefault("BRUTEFORCE_THRESHOLD", 3)),
		BruteForceWindow:    getEnvDurationOrDefault("BRUTEFORCE_WINDOW", 15*time.Minute),
		BruteForceMaxBlock:  getEnvDurationOrDefault("BRUTEFORCE_MAX_BLOCK", 24*time.Hour),

		ReputationThreshold: int64(getEnvIntOrDefault("REPUTATION_THRESHOLD", 5)),
		ReputationWindow:    getEnvDurationOrDefault("REPUTATION_WINDOW", time.Hour),
		ReputationBlock:     getEnvDurationOrDefault("REPUTATION_BLOCK_DURATION", time.Hour),

		CSRFTTL:        getEnvDurationOrDefault("CSRF_TTL", time.Hour),
		CSRFCookieName: getEnvOrDefault("CSRF_COOKIE_NAME", "csrf_token"),
		CSRFStrictIP:   getEnvBoolOrDefault("CSRF_STRICT_IP", false),

		AuditMaxBodySize:    getEnvIntOrDefault("AUDIT_MAX_BODY_SIZE", 4096),
		AuditExcludePaths:   getEnvListOrDefault("AUDIT_EXCLUDE_PATHS", []string{"/healthz", "/metrics", "/favicon.ico"}),
		AuditExcludeMethods: getEnvListOrDefault("AUDIT_EXCLUDE_METHODS", []string{"OPTIONS", "HEAD"}),
		AuditExcludeHeaders: getEnvListOrDefault("AUDIT_EXCLUDE_HEADERS", []string{"Authorization", "Cookie", "Set-Cookie", "X-Csrf-Token"}),
		AuditPIIFields:      getEnvListOrDefault("AUDIT_PII_FIELDS", nil),
		AuditBufferSize:     getEnvIntOrDefault("AUDIT_BUFFER_SIZE", 100),
		AuditFlushInterval:  getEnvDurationOrDefault("AUDIT_FLUSH_INTERVAL", 10*time.Second),
		AuditSpoolFile:      os.Getenv("AUDIT_SPOOL_FILE"),
		AuditRetention:      getEnvDurationOrDefault("AUDIT_RETENTION", 30*24*time.Hour),

		PlatformBaseURL:    os.Getenv("PLATFORM_BASE_URL"),
		PlatformServiceKey: os.Getenv("PLATFORM_SERVICE_KEY"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer seconds also accepted
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
