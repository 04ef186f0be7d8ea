// Package database opens the gorm connection backing
// internal/adapters/persistence.GormStore.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kvell/invsync/internal/adapters/persistence"
	"github.com/kvell/invsync/internal/infrastructure/config"
)

// NewConnection opens a database connection per cfg.Type.
func NewConnection(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dsn := cfg.URL
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		}
		dialector = postgres.Open(dsn)

	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		dialector = sqlite.Open(path)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Type == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying db: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpen)
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdle)
		sqlDB.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	return db, nil
}

// NewTestConnection opens an in-memory SQLite database for tests.
func NewTestConnection() (*gorm.DB, error) {
	return NewConnection(&config.DatabaseConfig{Type: "sqlite", Path: ":memory:"})
}

// AutoMigrate creates/updates every table the reconciler needs.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&persistence.InventoryItemModel{},
		&persistence.SystemCacheItemModel{},
		&persistence.CacheDeltaModel{},
		&persistence.SyncBatchModel{},
		&persistence.SyncLogModel{},
		&persistence.OAuth2TokenModel{},
	)
}

// Close closes the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
