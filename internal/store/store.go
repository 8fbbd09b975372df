// Package store persists projects, presets, and build history in a local
// SQLite database via GORM.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appLogger "github.com/KongYongGun/epub-studio/internal/logger"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("record not found")

// Database wraps the GORM database connection
type Database struct {
	db     *gorm.DB
	logger *appLogger.Logger
}

// NewDatabase opens (creating if needed) the SQLite database at dbPath,
// runs migrations, and seeds the default preset catalogs.
func NewDatabase(dbPath string, log *appLogger.Logger) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// SQLite only supports one writer at a time
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	database := &Database{
		db:     db,
		logger: log,
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.seed(); err != nil {
		return nil, fmt.Errorf("failed to seed defaults: %w", err)
	}

	if log != nil {
		log.Info("Database connection established", map[string]interface{}{
			"path": dbPath,
		})
	}

	return database, nil
}

func (d *Database) migrate() error {
	err := d.db.AutoMigrate(
		&Project{},
		&Chapter{},
		&RegexPreset{},
		&StylePreset{},
		&BuildRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if d.logger != nil {
		d.logger.Info("Database connection closed", nil)
	}

	return nil
}

// GetDB returns the underlying GORM database instance
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// Health checks the database connection
func (d *Database) Health() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
