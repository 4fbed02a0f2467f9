package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/m3rciful/hrvbot/core/logger"
)

const connectTimeout = 5 * time.Second

// DSN builds the driver specific data source name.
func DSN(cfg Config) (string, error) {
	switch cfg.DriverName() {
	case DriverPostgres:
		return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return "", errors.New("database.path is required for sqlite3")
		}
		return "file:" + cfg.Path + "?_foreign_keys=on&_busy_timeout=5000", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Connect opens and pings the database and sizes its pool.
func Connect(cfg Config) (*sqlx.DB, error) {
	driver := cfg.DriverName()
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	attrs := []any{
		slog.String("driver", driver),
		slog.String("host", cfg.Host),
		slog.String("db", label(cfg)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		logger.DB.Error("db connect failed", append(attrs,
			slog.String("event", "db.connect"),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := cfg.MaxConnections
	if driver == DriverSQLite {
		// one writer at a time; more connections only trade for SQLITE_BUSY
		pool = 1
	}
	if pool > 0 {
		db.SetMaxOpenConns(pool)
		db.SetMaxIdleConns(pool)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.DB.Info("db connected", append(attrs,
		slog.String("event", "db.connect"),
		slog.Int("pool_open", pool),
		slog.Duration("duration", time.Since(start)),
	)...)
	return db, nil
}

// WaitForPostgres pings dsn every two seconds until it answers or timeout
// passes.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-tick.C:
		}
	}
}

func label(cfg Config) string {
	if cfg.DriverName() == DriverSQLite {
		return cfg.Path
	}
	return cfg.Name
}
