package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Options tunes the connection pool and the query logger.
type Options struct {
	Logger          zerolog.Logger
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

// ConnectPostgres establishes a pooled connection to PostgreSQL.
func ConnectPostgres(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := configurePool(db, opts); err != nil {
		return nil, err
	}

	return db, nil
}

// ConnectSQLite opens a SQLite database with queries left unlogged, used for
// tests.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	return openSQLite(dsn, Options{Logger: zerolog.Nop()})
}

func openSQLite(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn must not be empty")
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return db, nil
}

// Connect picks the driver from the URL scheme: sqlite:// or file: selects
// SQLite, anything else is handed to the Postgres driver. Pool settings only
// apply to Postgres.
func Connect(url string, opts Options) (*gorm.DB, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return openSQLite(strings.TrimPrefix(url, "sqlite://"), opts)
	case strings.HasPrefix(url, "file:"):
		return openSQLite(url, opts)
	default:
		return ConnectPostgres(url, opts)
	}
}

// gormConfig enables error translation so duplicate-key violations surface as
// gorm.ErrDuplicatedKey, and routes query logging through zerolog.
func gormConfig(opts Options) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         newQueryLogger(opts.Logger, opts.SlowThreshold),
	}
}

func configurePool(db *gorm.DB, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return nil
}
