package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()

	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 10*time.Minute, cfg.ConnMaxIdleTime)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPoolConfigFromEnv(t *testing.T) {
	t.Run("falls back to defaults", func(t *testing.T) {
		assert.Equal(t, DefaultPoolConfig(), LoadPoolConfigFromEnv())
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("DB_POOL_MAX_OPEN", "50")
		t.Setenv("DB_POOL_MAX_IDLE", "10")
		t.Setenv("DB_POOL_CONN_MAX_LIFETIME", "1m")

		cfg := LoadPoolConfigFromEnv()

		assert.Equal(t, 50, cfg.MaxOpenConns)
		assert.Equal(t, 10, cfg.MaxIdleConns)
		assert.Equal(t, time.Minute, cfg.ConnMaxLifetime)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid limits",
			cfg:  Config{MaxOpenConns: 10, MaxIdleConns: 5},
		},
		{
			name:    "zero open connections",
			cfg:     Config{MaxOpenConns: 0, MaxIdleConns: 0},
			wantErr: true,
		},
		{
			name:    "negative idle connections",
			cfg:     Config{MaxOpenConns: 10, MaxIdleConns: -1},
			wantErr: true,
		},
		{
			name:    "idle above open",
			cfg:     Config{MaxOpenConns: 5, MaxIdleConns: 10},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetupConnectionPool(t *testing.T) {
	t.Run("applies limits", func(t *testing.T) {
		db := openTestDB(t)

		err := SetupConnectionPool(db, Config{
			MaxOpenConns:    8,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
			ConnMaxIdleTime: time.Minute,
		})
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.Equal(t, 8, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("rejects invalid limits before touching the pool", func(t *testing.T) {
		db := openTestDB(t)

		err := SetupConnectionPool(db, Config{MaxOpenConns: 0})
		assert.Error(t, err)
	})
}
