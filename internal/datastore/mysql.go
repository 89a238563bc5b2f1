package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	m := settings.Database.MySQL
	if m.Host == "" || m.Database == "" || m.Username == "" {
		return validationError("MySQL host, database and username are required", "database.mysql", m.Host)
	}
	return nil
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	m := store.Settings.Database.MySQL
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.Username, m.Password, m.Host, m.Port, m.Database)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(store.logger, store.Settings))
	if err != nil {
		store.logger.Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return dbError(err, "open", "db_type", "mysql")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	store.DB = db
	return performAutoMigration(db, store.logger, "MySQL", fmt.Sprintf("%s:%s/%s", m.Host, m.Port, m.Database))
}

// Close closes the MySQL database
func (store *MySQLStore) Close() error {
	err := closeDB(store.DB)
	store.DB = nil
	return err
}
