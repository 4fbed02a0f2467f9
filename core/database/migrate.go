package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/hrvbot/core/logger"
)

const readyTimeout = 30 * time.Second

// MigrationURL returns the golang-migrate database URL for cfg.
func MigrationURL(cfg Config) (string, error) {
	switch cfg.DriverName() {
	case DriverPostgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return "", errors.New("database.path is required for sqlite3")
		}
		return "sqlite3://" + cfg.Path, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// MigrationsPath resolves <migrations_dir>/<driver>; migrations_dir
// defaults to ./migrations.
func MigrationsPath(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.MigrationsDir)
	if base == "" {
		base = "migrations"
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve migrations dir: %w", err)
	}
	return filepath.Join(abs, cfg.DriverName()), nil
}

// RunMigrations applies every pending up migration for cfg's driver.
func RunMigrations(cfg Config) error {
	dbURL, err := MigrationURL(cfg)
	if err != nil {
		return err
	}
	if cfg.DriverName() == DriverPostgres {
		if err := WaitForPostgres(dbURL, readyTimeout); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
	}
	dir, err := MigrationsPath(cfg)
	if err != nil {
		return err
	}
	files := upFiles(dir)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("path", dir),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", logger.Preview(files, 6)),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), dbURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.MIG.Warn("migrator close failed",
				slog.String("event", "close"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("migration execution failed: %w", err)
	}
	to, _, _ := m.Version()

	applied := between(files, uint64(from), uint64(to))
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.String("files_preview", logger.Preview(applied, 6)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// upFiles lists the *.up.sql names in dir, sorted.
func upFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// between returns the files whose numeric prefix lies in (from, to].
func between(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
