// Package cmd runs a Telegram bot binary: flags, config, bootstrap, signals.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/hrvbot/core/buildinfo"
	coreconfig "github.com/m3rciful/hrvbot/core/config"
	"github.com/m3rciful/hrvbot/core/logger"
	coretelegram "github.com/m3rciful/hrvbot/core/telegram"
)

// ErrVersionShown is returned by Run after -version printed the build info.
var ErrVersionShown = errors.New("cmd: version shown")

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string
	// Args are the command line arguments without the program name; nil reads os.Args.
	Args []string
	// Stdout receives -version output; nil means os.Stdout.
	Stdout io.Writer

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

type flags struct {
	config  string
	version bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.config, "config", "", "path to the YAML config file")
	fs.BoolVar(&f.version, "version", false, "print build info and exit")
	if err := fs.Parse(args); err != nil {
		return f, fmt.Errorf("cmd: %w", err)
	}
	return f, nil
}

// ConfigPath picks the config file: the -config flag, then the env var, then the default.
func ConfigPath(flagValue, envVar, fallback string) (string, error) {
	if envVar == "" {
		envVar = "CONFIG_PATH"
	}
	for _, p := range []string{flagValue, os.Getenv(envVar), fallback} {
		if p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("cmd: config path not provided via -config, %s or DefaultConfigPath", envVar)
}

// Run loads configuration, bootstraps the Telegram app, and starts the bot runtime.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	args := opts.Args
	if args == nil {
		args = os.Args[1:]
	}
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.version {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintln(out, buildinfo.String())
		return ErrVersionShown
	}

	cfgPath, err := ConfigPath(f.config, opts.ConfigEnvVar, opts.DefaultConfigPath)
	if err != nil {
		return err
	}
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config %s: %w", cfgPath, err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: loaded config is missing core configuration")
	}

	application, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	appLog := logger.Component("app")
	appLog.Info("config loaded",
		slog.String("event", "config.load"),
		slog.String("path", cfgPath),
		slog.String("version", buildinfo.String()),
	)

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
		}
	}()

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}

	startedAt := time.Now()
	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		appLog.Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		appLog.Info("shutting down...", slog.String("event", "shutdown"))
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}
