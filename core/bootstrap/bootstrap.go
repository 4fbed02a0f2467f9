// Package bootstrap brings up the shared infrastructure in order:
// logger, database connection, schema migrations.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/hrvbot/core/config"
	coredatabase "github.com/m3rciful/hrvbot/core/database"
	"github.com/m3rciful/hrvbot/core/logger"
)

// Options selects the steps to run. Nil funcs take the core defaults.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// SkipDatabase runs the logger step only, for bots backed by in-memory stores.
	SkipDatabase bool

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil when the database step was skipped.
type Result struct {
	DB *sqlx.DB
}

func (o *Options) defaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Run executes the steps and closes the database again if migrating fails.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts.defaults()

	if err := step("logger", func() error { return opts.LoggerInit(opts.Config) }); err != nil {
		return nil, err
	}
	res := &Result{}
	if opts.SkipDatabase {
		return res, nil
	}

	err := step("database", func() (err error) {
		res.DB, err = opts.Connect(opts.Database)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := step("migrations", func() error { return opts.Migrate(opts.Database) }); err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return res, nil
}

func step(name string, run func() error) error {
	start := time.Now()
	if err := run(); err != nil {
		return fmt.Errorf("bootstrap: %s: %w", name, err)
	}
	logger.Debug(logger.Background(), "app", "bootstrap.step",
		slog.String("name", name),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
