package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Database.SQLite.Path == "" {
		return validationError("SQLite database path is empty", "database.sqlite.path", "")
	}
	return nil
}

// Open sets up the SQLite database connection
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	path := store.Settings.Database.SQLite.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return dbError(err, "create_db_dir", "path", dir)
		}
	}

	dsn := "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(store.logger, store.Settings))
	if err != nil {
		store.logger.Error("failed to open SQLite database",
			logger.String("path", path), logger.Error(err))
		return dbError(err, "open", "db_type", "sqlite")
	}

	// SQLite allows a single writer; serialise through one connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	return performAutoMigration(db, store.logger, "SQLite", path)
}

// Close closes the SQLite database
func (store *SQLiteStore) Close() error {
	err := closeDB(store.DB)
	store.DB = nil
	return err
}
