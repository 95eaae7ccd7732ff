// Package repo implements the record store for the CRM entities, backed by
// GORM on a pure-Go SQLite driver.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-crm-backend/internal/domain"
)

// pragmas applied to every new database handle. WAL lets the notification
// pollers read while a contact write is in flight.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// OpenSQLite opens the database at path, creating its parent directory when
// needed. Every query is traced through the OpenTelemetry GORM plugin.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("repo: create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("repo: open %s: %w", path, err)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("repo: %s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// Models lists every table owned by the CRM, in migration order.
func Models() []any {
	return []any{
		&domain.Contact{},
		&domain.Interaction{},
		&domain.User{},
		&domain.Notification{},
		&domain.Idempotency{},
	}
}

// AutoMigrate creates or updates every CRM table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
