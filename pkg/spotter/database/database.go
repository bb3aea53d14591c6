package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SlowQueryThreshold is the duration above which a query is logged at WARN.
const SlowQueryThreshold = 200 * time.Millisecond

// Connect opens the database for the given driver.
// SQLite is the default; Postgres is reached through gorm's pgx-based driver.
// SQL traces go to log (slog.Default() when nil).
func Connect(driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         NewLogger(log),
	})
	if err != nil {
		return nil, err
	}

	if driver == "" || driver == DriverSQLite {
		// SQLite allows a single writer; one connection also keeps ":memory:" databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// NewLogger returns a gorm logger writing through log at WARN and above.
// Missing rows and unique-key violations are not logged: the store turns them
// into NOT_FOUND, ALREADY_JOINED or CONFLICT and the caller logs those outcomes.
func NewLogger(log *slog.Logger) logger.Interface {
	if log == nil {
		log = slog.Default()
	}
	return expectedErrors{logger.NewSlogLogger(log, logger.Config{
		LogLevel:                  logger.Warn,
		SlowThreshold:             SlowQueryThreshold,
		IgnoreRecordNotFoundError: true,
	})}
}

type expectedErrors struct {
	logger.Interface
}

func (l expectedErrors) LogMode(level logger.LogLevel) logger.Interface {
	return expectedErrors{l.Interface.LogMode(level)}
}

func (l expectedErrors) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = nil
	}
	l.Interface.Trace(ctx, begin, fc, err)
}
