package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	SMSProviderMock      = "mock"
	SMSProviderTextLocal = "textlocal"
)

type Config struct {
	Addr               string
	Environment        string
	LogLevel           string
	StorageDriver      string
	DataDir            string
	SQLitePath         string
	DatabaseURL        string
	SessionSecret      string
	SessionTTL         time.Duration
	EditorPassword     string
	SeedFile           string
	RunSeed            bool
	BaseURL            string
	EmailEnabled       bool
	EmailFrom          string
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
	SMSProvider        string
	TextLocalAPIKey    string
	TextLocalSender    string
	TextLocalURL       string
	ResetTokenTTL      time.Duration
	OTPTTL             time.Duration
	OTPMaxAttempts     int
	TokenCleanup       time.Duration
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
	CORSAllowedOrigins []string
}

// Load reads the environment, after filling it from a .env file in the
// working directory when one exists. Real environment variables win.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		Environment:        getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile)),
		DataDir:            getEnv("DATA_DIR", "data"),
		SQLitePath:         getEnv("SQLITE_PATH", "data/rota.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionTTL:         getEnvDuration("SESSION_TTL", 12*time.Hour),
		EditorPassword:     getEnv("EDITOR_PASSWORD", ""),
		SeedFile:           getEnv("SEED_FILE", ""),
		RunSeed:            getEnvBool("RUN_SEED", true),
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		EmailEnabled:       getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:          getEnv("EMAIL_FROM", "no-reply@example.com"),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           getEnv("SMTP_USER", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:         getEnvBool("SMTP_USE_TLS", true),
		SMSProvider:        strings.ToLower(getEnv("SMS_PROVIDER", SMSProviderMock)),
		TextLocalAPIKey:    getEnv("TEXTLOCAL_API_KEY", ""),
		TextLocalSender:    getEnv("TEXTLOCAL_SENDER", "TXTLCL"),
		TextLocalURL:       getEnv("TEXTLOCAL_URL", "https://api.textlocal.in/send/"),
		ResetTokenTTL:      getEnvDuration("RESET_TOKEN_TTL", 30*time.Minute),
		OTPTTL:             getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts:     getEnvInt("OTP_MAX_ATTEMPTS", 3),
		TokenCleanup:       getEnvDuration("TOKEN_CLEANUP_INTERVAL", 15*time.Minute),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("DATA_DIR is required for the file storage driver")
		}
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite storage driver")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of file, sqlite, postgres")
	}
	if c.Environment == "production" {
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.EditorPassword) == "" {
			return fmt.Errorf("EDITOR_PASSWORD must be set in production")
		}
		if c.SMSProvider == SMSProviderMock {
			return fmt.Errorf("SMS_PROVIDER mock is not allowed in production")
		}
	}
	if c.SMSProvider != SMSProviderMock && c.SMSProvider != SMSProviderTextLocal {
		return fmt.Errorf("SMS_PROVIDER must be mock or textlocal")
	}
	if c.SMSProvider == SMSProviderTextLocal && c.TextLocalAPIKey == "" {
		return fmt.Errorf("TEXTLOCAL_API_KEY must be set when SMS_PROVIDER is textlocal")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}

// EffectiveSessionSecret returns the configured secret, or a fixed
// development value outside production.
func (c Config) EffectiveSessionSecret() string {
	if c.SessionSecret != "" {
		return c.SessionSecret
	}
	return "dev-session-secret-change-me"
}
