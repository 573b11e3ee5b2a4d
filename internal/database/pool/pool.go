// Package pool sizes the database connection pool.
package pool

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/reviewflow/reviewflow/internal/database/config"
)

// Config holds connection pool limits.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool limits suited to one engine instance: the
// webhook path plus the sweep never need more than a handful of
// connections.
func DefaultPoolConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// LoadPoolConfigFromEnv reads pool limits from the environment, falling
// back to the defaults.
func LoadPoolConfigFromEnv() Config {
	defaults := DefaultPoolConfig()
	return Config{
		MaxOpenConns:    config.GetEnvInt("DB_POOL_MAX_OPEN", defaults.MaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DB_POOL_MAX_IDLE", defaults.MaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("DB_POOL_CONN_MAX_LIFETIME", defaults.ConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("DB_POOL_CONN_MAX_IDLE_TIME", defaults.ConnMaxIdleTime),
	}
}

// Validate rejects inconsistent pool limits.
func (c Config) Validate() error {
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be greater than 0")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns must be non-negative")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns (%d) cannot be greater than MaxOpenConns (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

// SetupConnectionPool applies the limits to the underlying sql.DB.
func SetupConnectionPool(db *gorm.DB, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return nil
}
