package config

import (
	"os"
	"strconv"
	"strings"
)

const devJWTSecret = "memberhub-dev-secret-do-not-use-in-production"

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Env                   string
	Port                  string
	DatabasePath          string
	JWTSecret             string
	JWTSecretFallback     bool
	JWTIssuer             string
	TokenTTLHours         int
	CorsOrigins           []string
	StorageBackend        string
	UploadDir             string
	PublicUploadBaseURL   string
	AzureConnectionString string
	AzureContainer        string
	MaxUploadMB           int
	RateLimit             string
	AuthRateLimit         string
	TrustProxy            bool
	RedisURL              string
	AMQPURL               string
	MetricsSampleSeconds  int
	MetricsDiskPath       string
	FrontendURL           string
	LogLevel              string
	LogJSON               bool
	LogDir                string
	LogRetentionDays      int
}

func Load() Config {
	cfg := Config{
		Env:                   strings.ToLower(envOr("APP_ENV", "development")),
		Port:                  envOr("PORT", "8080"),
		DatabasePath:          envOr("DATABASE_PATH", "data/memberhub.db"),
		JWTSecret:             envOr("JWT_SECRET", ""),
		JWTIssuer:             envOr("JWT_ISSUER", "memberhub"),
		TokenTTLHours:         envOrInt("TOKEN_TTL_HOURS", 168),
		CorsOrigins:           parseCSV(envOr("CORS_ORIGINS", "")),
		StorageBackend:        strings.ToLower(envOr("STORAGE_BACKEND", "local")),
		UploadDir:             envOr("UPLOAD_DIR", "storage/uploads"),
		PublicUploadBaseURL:   strings.TrimRight(envOr("PUBLIC_UPLOAD_BASE_URL", "/files"), "/"),
		AzureConnectionString: envOr("AZURE_STORAGE_CONNECTION_STRING", ""),
		AzureContainer:        envOr("AZURE_STORAGE_CONTAINER", "uploads"),
		MaxUploadMB:           envOrInt("MAX_UPLOAD_MB", 50),
		RateLimit:             envOr("RATE_LIMIT", "300-M"),
		AuthRateLimit:         envOr("AUTH_RATE_LIMIT", "20-M"),
		TrustProxy:            envOrBool("TRUST_PROXY", false),
		RedisURL:              envOr("REDIS_URL", ""),
		AMQPURL:               envOr("AMQP_URL", ""),
		MetricsSampleSeconds:  envOrInt("METRICS_SAMPLE_INTERVAL", 15),
		MetricsDiskPath:       envOr("METRICS_DISK_PATH", "."),
		FrontendURL:           strings.TrimRight(envOr("FRONTEND_URL", "http://localhost:5173"), "/"),
		LogLevel:              strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogJSON:               envOrBool("LOG_JSON", false),
		LogDir:                envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays:      envOrInt("LOG_RETENTION_DAYS", 7),
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
		cfg.JWTSecretFallback = true
	}
	if cfg.TokenTTLHours <= 0 {
		cfg.TokenTTLHours = 168
	}
	if cfg.LogRetentionDays < 1 || cfg.LogRetentionDays > 7 {
		cfg.LogRetentionDays = 7
	}
	return cfg
}

// IsProduction reports whether error details and insecure fallbacks must be suppressed.
func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
