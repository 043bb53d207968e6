package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edustake/edustake-core/internal/infrastructure/database/models"
)

// NewSQLite opens the embedded database file backing the local durable
// store. One file per browser-profile equivalent.
func NewSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

// MigrateSQLite applies migrations for the storage models.
func MigrateSQLite(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.KVEntry{},
	)
}
