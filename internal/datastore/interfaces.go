// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// DefaultPageSize is the number of feedback rows returned per page.
const DefaultPageSize = 20

// Interface abstracts the underlying database implementation and defines the interface for database operations.
type Interface interface {
	Open() error
	Close() error
	Ping(ctx context.Context) error

	// users
	CreateUser(ctx context.Context, nu NewUser) (*User, error)
	GetUser(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, id uint, upd UserUpdate) (*User, error)
	SetUserDP(ctx context.Context, id uint, dp string) error
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// posts
	CreatePost(ctx context.Context, uid uint, text, media string) (*Post, error)
	GetPost(ctx context.Context, id uint) (*Post, error)
	DeletePost(ctx context.Context, id uint) error

	// friends
	SendFriendRequest(ctx context.Context, fromID, toID uint) (*Friend, error)
	AcceptFriendRequest(ctx context.Context, fromID, toID uint) error
	PendingFriendRequests(ctx context.Context, toID uint) ([]FriendRequest, error)

	// feedback
	InsertFeedback(ctx context.Context, name, email, description string) (*Feedback, error)
	ListFeedback(ctx context.Context, page int) ([]Feedback, error)
	DeleteFeedback(ctx context.Context, id uint) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB       *gorm.DB // GORM database instance
	logger   logger.Logger
	pageSize int
	now      func() time.Time
}

// New creates a new store for the backend enabled in settings.
func New(settings *conf.Settings, log logger.Logger) Interface {
	if log == nil {
		log = logger.NewConsoleLogger("datastore", logger.LogLevelInfo)
	}
	base := DataStore{
		logger:   log,
		pageSize: settings.Feedback.PageSize,
		now:      time.Now,
	}
	if base.pageSize <= 0 {
		base.pageSize = DefaultPageSize
	}

	switch {
	case settings.Database.SQLite.Enabled:
		return &SQLiteStore{DataStore: base, Settings: settings}
	case settings.Database.MySQL.Enabled:
		return &MySQLStore{DataStore: base, Settings: settings}
	default:
		return nil
	}
}

// db returns a session bound to ctx so queries are cancelled with the caller.
func (ds *DataStore) db(ctx context.Context) (*gorm.DB, error) {
	if ds.DB == nil {
		return nil, dbError(errNotInitialized, "get_connection")
	}
	return ds.DB.WithContext(ctx), nil
}

// Ping checks that the database answers.
func (ds *DataStore) Ping(ctx context.Context) error {
	if ds.DB == nil {
		return dbError(errNotInitialized, "ping")
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "get_sql_db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping")
	}
	return nil
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, log logger.Logger, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&User{}, &Post{}, &Friend{}, &Feedback{}); err != nil {
		return dbError(err, "auto_migrate", "db_type", dbType)
	}

	log.Info("database connection initialized",
		logger.String("db_type", dbType),
		logger.String("connection", connectionInfo))

	return nil
}

// gormConfig returns the shared GORM configuration.
func gormConfig(log logger.Logger, settings *conf.Settings) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log, settings.Database.SlowThreshold),
		TranslateError: true,
	}
}

// closeDB closes the pooled connections behind db.
func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "get_sql_db")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	return nil
}
