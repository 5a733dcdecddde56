package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "STORAGE_DRIVER", "SMS_PROVIDER", "EMAIL_ENABLED", "SESSION_TTL", "OTP_TTL", "OTP_MAX_ATTEMPTS", "CORS_ALLOWED_ORIGINS", "BASE_URL", "TOKEN_CLEANUP_INTERVAL"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	assert.Equal(t, StorageFile, cfg.StorageDriver)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.TokenCleanup)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("BASE_URL", "https://rota.example.com/")
	t.Setenv("RESET_TOKEN_TTL", "45m")
	t.Setenv("OTP_MAX_ATTEMPTS", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "https://rota.example.com", cfg.BaseURL)
	assert.Equal(t, 45*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
}

func TestValidate(t *testing.T) {
	base := FromEnv()
	base.StorageDriver = StorageFile
	base.DataDir = "data"
	base.SMSProvider = SMSProviderMock
	base.Environment = "development"
	require.NoError(t, base.Validate())

	cfg := base
	cfg.StorageDriver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.StorageDriver = StoragePostgres
	cfg.DatabaseURL = ""
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")

	cfg = base
	cfg.Environment = "production"
	cfg.SessionSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "SESSION_SECRET")

	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	cfg.EditorPassword = "editor-password"
	assert.ErrorContains(t, cfg.Validate(), "mock")

	cfg.SMSProvider = SMSProviderTextLocal
	assert.ErrorContains(t, cfg.Validate(), "TEXTLOCAL_API_KEY")
	cfg.TextLocalAPIKey = "key"
	assert.NoError(t, cfg.Validate())

	cfg = base
	cfg.EmailEnabled = true
	cfg.SMTPHost = ""
	assert.ErrorContains(t, cfg.Validate(), "SMTP_HOST")
}

func TestDotEnvFileIsRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SMS_PROVIDER=textlocal\nTEXTLOCAL_SENDER=ROTA\n"), 0o600))

	t.Setenv("SMS_PROVIDER", "")
	t.Setenv("TEXTLOCAL_SENDER", "")
	os.Unsetenv("SMS_PROVIDER")
	os.Unsetenv("TEXTLOCAL_SENDER")
	require.NoError(t, godotenv.Load(path))

	cfg := FromEnv()
	assert.Equal(t, SMSProviderTextLocal, cfg.SMSProvider)
	assert.Equal(t, "ROTA", cfg.TextLocalSender)
}
