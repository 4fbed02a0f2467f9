// Package hrvbot wires the HRV conversation bot: stores, dialogs, the turn
// queue, metrics and the Telegram runtime.
package hrvbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/hrvbot/core/bootstrap"
	"github.com/m3rciful/hrvbot/core/cmd"
	coredatabase "github.com/m3rciful/hrvbot/core/database"
	"github.com/m3rciful/hrvbot/core/logger"
	coretelegram "github.com/m3rciful/hrvbot/core/telegram"
	"github.com/m3rciful/hrvbot/core/telegram/commands"
	"github.com/m3rciful/hrvbot/core/telegram/router"
	"github.com/m3rciful/hrvbot/core/telegram/turns"
	"github.com/m3rciful/hrvbot/internal/blob"
	"github.com/m3rciful/hrvbot/internal/conversation"
	"github.com/m3rciful/hrvbot/internal/dialog"
	"github.com/m3rciful/hrvbot/internal/linkimport"
	"github.com/m3rciful/hrvbot/internal/metrics"
	"github.com/m3rciful/hrvbot/internal/records"
	"github.com/m3rciful/hrvbot/internal/reply"
)

// App holds the wired bot.
type App struct {
	cfg *Config
	db  *sqlx.DB

	records    records.Store
	blobs      blob.Store
	dispatcher *conversation.Dispatcher
	queue      *turns.Queue
	metrics    *metrics.Metrics
	server     *metrics.Server
	media      *botMedia
	inbound    *inbound
}

var _ cmd.TelegramApp = (*App)(nil)

// Bootstrap adapts New to the runner contract.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("hrvbot: unexpected config type %T", carrier)
	}
	return New(cfg)
}

// New initializes logging and storage for cfg and wires the bot.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("hrvbot: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:       &cfg.Config,
		Database:     cfg.Database,
		SkipDatabase: cfg.Database.DriverName() == coredatabase.DriverMemory,
	})
	if err != nil {
		return nil, err
	}
	app, err := wire(cfg, res.DB)
	if err != nil && res.DB != nil {
		_ = res.DB.Close()
	}
	return app, err
}

func wire(cfg *Config, db *sqlx.DB) (*App, error) {
	a := &App{cfg: cfg, db: db, media: &botMedia{}, metrics: metrics.New()}

	if db != nil {
		a.records = records.NewSQLStore(db)
	} else {
		a.records = records.NewMemory()
	}
	if cfg.Storage.Root != "" {
		fs, err := blob.NewFS(cfg.Storage.Root)
		if err != nil {
			return nil, fmt.Errorf("hrvbot: storage: %w", err)
		}
		a.blobs = fs
	} else {
		a.blobs = blob.NewMemory()
	}

	httpClient := coretelegram.BuildHTTPClient(coretelegram.HTTPClientOptions{
		Timeout:     cfg.ProviderTimeout(),
		Backoff:     500 * time.Millisecond,
		RetryStatus: true,
	})
	pipeline := linkimport.NewPipeline(
		linkimport.NewClient(cfg.Provider.Endpoint, httpClient),
		linkimport.NewLineRenderer(),
		a.blobs,
		cfg.Provider.ServedTitles,
	)

	machine := dialog.NewMachine(dialog.Deps{
		Records:  a.records,
		Blobs:    a.blobs,
		Media:    a.media,
		Importer: pipeline,
	})
	a.dispatcher = conversation.New(conversation.Options{
		Machine:  machine,
		Records:  a.records,
		Images:   a.blobs,
		Importer: pipeline,
		Composer: reply.Composer{RepromptOnMismatch: cfg.Dialogs.RepromptOnMismatch},
		Observer: a.metrics,
	})
	a.queue = turns.NewQueue(turns.Options{
		Shards:      cfg.Turns.Shards,
		QueueSize:   cfg.Turns.QueueSize,
		MaxDuration: cfg.TurnTimeout(),
	})
	a.inbound = &inbound{queue: a.queue, dispatcher: a.dispatcher, metrics: a.metrics}
	if cfg.Metrics.Listen != "" {
		a.server = metrics.NewServer(cfg.Metrics.Listen, a.metrics)
	}

	logger.TWire.Info("app wired",
		slog.String("event", "app.wire"),
		slog.String("db", cfg.Database.DriverName()),
		slog.Bool("fs_blobs", cfg.Storage.Root != ""),
		slog.Bool("metrics", a.server != nil),
	)
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *Config { return a.cfg }

// Dispatcher returns the conversation dispatcher.
func (a *App) Dispatcher() *conversation.Dispatcher { return a.dispatcher }

var commandList = []struct {
	name        string
	description string
	hidden      bool
}{
	{"/start", "List the available commands", false},
	{"/conv", "Have a casual conversation", false},
	{"/input", "Store your HRV photos", false},
	{"/link", "Import HRV data from a share link", false},
	{"/plot", "Show your imported HRV plots", false},
	{"/restore", "Get back your stored HRV photos", false},
	{"/skip", "Skip an optional step", true},
	{"/cancel", "Stop the current dialog", false},
}

// Registry builds the command registry. Every command is a queued turn.
func (a *App) Registry() (*coretelegram.Registry, error) {
	reg := coretelegram.NewRegistry()
	for _, c := range commandList {
		err := reg.Register(c.name, commands.Command{
			Handler:     a.inbound.Accept,
			Description: c.description,
			Hidden:      c.hidden,
		})
		if err != nil {
			return nil, fmt.Errorf("hrvbot: %w", err)
		}
	}
	return reg, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg, err := a.Registry()
	if err != nil {
		return coretelegram.RunOptions{}, err
	}
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.MessageRoutes(a.inbound, reg, router.MessageOptions{
		UnknownDocument: a.inbound.Document,
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.metrics.ObserveUpdate),
		Routes:      routes,
		Synchronous: true,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.media.Bind(rt.Bot)
			if a.server != nil {
				if err := a.server.Start(); err != nil {
					return fmt.Errorf("hrvbot: metrics server: %w", err)
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			return a.Close(ctx)
		},
	}, nil
}

// Close drains queued turns, then stops the metrics server and the database.
func (a *App) Close(ctx context.Context) error {
	a.queue.Close()
	logger.TWire.Info("turns drained",
		slog.String("event", "turns.drain"),
		slog.Uint64("count", a.queue.HandledCount()),
		slog.Uint64("errors", a.queue.ErrorCount()),
		slog.Int("sessions", a.dispatcher.Sessions().Len()),
	)

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	return errors.Join(errs...)
}
