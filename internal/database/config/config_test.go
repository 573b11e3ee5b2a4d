package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("uses defaults when nothing is set", func(t *testing.T) {
		cfg := LoadConfigFromEnv()

		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, "postgres", cfg.User)
		assert.Equal(t, "reviewflow", cfg.DBName)
		assert.Equal(t, "5432", cfg.Port)
		assert.Equal(t, "disable", cfg.SSLMode)
		assert.Equal(t, "UTC", cfg.TimeZone)
	})

	t.Run("reads overrides from environment", func(t *testing.T) {
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("DB_NAME", "engine")
		t.Setenv("DB_SSLMODE", "require")

		cfg := LoadConfigFromEnv()

		assert.Equal(t, "db.internal", cfg.Host)
		assert.Equal(t, "engine", cfg.DBName)
		assert.Equal(t, "require", cfg.SSLMode)
	})
}

func TestBuildDSN(t *testing.T) {
	cfg := Config{
		Host:     "localhost",
		User:     "engine",
		Password: "hunter2",
		DBName:   "reviewflow",
		Port:     "5432",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	dsn := BuildDSN(cfg)

	assert.Equal(t,
		"host=localhost user=engine password=hunter2 dbname=reviewflow port=5432 sslmode=disable TimeZone=UTC",
		dsn)
}

func TestSanitizeError(t *testing.T) {
	cfg := Config{
		Host:     "localhost",
		User:     "engine",
		Password: "hunter2",
		DBName:   "reviewflow",
		Port:     "5432",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, SanitizeError(nil, cfg))
	})

	t.Run("masks the password", func(t *testing.T) {
		err := errors.New("auth failed for password hunter2")

		sanitized := SanitizeError(err, cfg)

		require.Error(t, sanitized)
		assert.NotContains(t, sanitized.Error(), "hunter2")
		assert.Contains(t, sanitized.Error(), "***")
	})

	t.Run("masks an embedded DSN", func(t *testing.T) {
		err := errors.New("cannot connect: " + BuildDSN(cfg))

		sanitized := SanitizeError(err, cfg)

		require.Error(t, sanitized)
		assert.NotContains(t, sanitized.Error(), "password=hunter2")
		assert.Contains(t, sanitized.Error(), "password=***")
	})
}

func TestLoadRetryConfigFromEnv(t *testing.T) {
	t.Run("starts from postgres defaults", func(t *testing.T) {
		cfg := LoadRetryConfigFromEnv()

		assert.Equal(t, 5, cfg.MaxAttempts)
		assert.Contains(t, cfg.RetryableErrors, "connection refused")
	})

	t.Run("reads overrides from environment", func(t *testing.T) {
		t.Setenv("DB_RETRY_MAX_ATTEMPTS", "3")
		t.Setenv("DB_RETRY_INITIAL_DELAY", "500ms")
		t.Setenv("DB_RETRY_MULTIPLIER", "1.5")

		cfg := LoadRetryConfigFromEnv()

		assert.Equal(t, 3, cfg.MaxAttempts)
		assert.Equal(t, 500*time.Millisecond, cfg.InitialDelay)
		assert.Equal(t, 1.5, cfg.Multiplier)
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Run("GetEnvInt ignores garbage", func(t *testing.T) {
		t.Setenv("DB_TEST_INT", "many")
		assert.Equal(t, 7, GetEnvInt("DB_TEST_INT", 7))
	})

	t.Run("GetEnvDuration ignores garbage", func(t *testing.T) {
		t.Setenv("DB_TEST_DURATION", "soon")
		assert.Equal(t, time.Second, GetEnvDuration("DB_TEST_DURATION", time.Second))
	})

	t.Run("GetEnvFloat ignores garbage", func(t *testing.T) {
		t.Setenv("DB_TEST_FLOAT", "pi")
		assert.Equal(t, 2.0, GetEnvFloat("DB_TEST_FLOAT", 2.0))
	})
}
