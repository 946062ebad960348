package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a gorm Postgres connection and pings it, retrying with
// exponential backoff for up to maxWait so the API can start alongside the database.
func Connect(ctx context.Context, dsn string, log *slog.Logger, maxWait time.Duration) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("db: DATABASE_URL is empty")
	}

	// Surface slow queries through the service logger.
	lg := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var conn *gorm.DB
	backoff := retry.WithMaxDuration(maxWait, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		d, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: lg})
		if err != nil {
			log.Warn("database not reachable yet", "error", err)
			return retry.RetryableError(err)
		}
		sqlDB, err := d.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			log.Warn("database ping failed", "error", err)
			return retry.RetryableError(err)
		}
		conn = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("connected to database")
	return conn, nil
}

// Ping reports whether the underlying pool can reach the database.
func Ping(ctx context.Context, d *gorm.DB) error {
	sqlDB, err := d.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(d *gorm.DB) error {
	sqlDB, err := d.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
