// Package logger is the process-wide structured logger: one slog handler
// writing ordered kv or JSON lines to stdout and an optional rotated file.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"

	"github.com/m3rciful/hrvbot/core/buildinfo"
	coreconfig "github.com/m3rciful/hrvbot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar     slog.LevelVar
	debugSampler = newRatioSampler(1, 50)
	traceAll     bool

	// L is the base logger; component loggers below derive from it.
	L *slog.Logger

	DB         *slog.Logger // db
	TG         *slog.Logger // tg
	MIG        *slog.Logger // db.migrate
	TWire      *slog.Logger // tg.wire
	SVCDialogs *slog.Logger // service.dialogs
	SVCRecords *slog.Logger // service.records
	SVCImport  *slog.Logger // service.import
	SVCBlobs   *slog.Logger // service.blobs
)

func init() {
	L = slog.Default()
	deriveComponents()
}

// InitLogger installs the structured handler described by cfg. Later calls
// are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		levelVar.Set(parseLevel(lc.Level))
		debugSampler.Set(sampleRatio(lc.DebugSample))
		traceAll = truthy(os.Getenv("LOG_TRACE"))

		var outputs []io.Writer
		outputs, logClosers, err = openSinks(lc)
		if err != nil {
			return
		}
		logWriter = newAsyncWriter(outputs, 64*1024)
		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   parseFormat(lc),
			keyOrder: parseKeyOrder(lc.KeysOrder),
		}))
		slog.SetDefault(L)
		deriveComponents()

		L.LogAttrs(context.Background(), slog.LevelInfo, "",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("version", buildinfo.String()),
			slog.String("go_version", runtime.Version()),
			slog.String("profile", profile(lc)),
		)
	})
	return err
}

func deriveComponents() {
	DB = L.With("component", "db")
	TG = L.With("component", "tg")
	MIG = L.With("component", "db.migrate")
	TWire = L.With("component", "tg.wire")
	SVCDialogs = L.With("component", "service.dialogs")
	SVCRecords = L.With("component", "service.records")
	SVCImport = L.With("component", "service.import")
	SVCBlobs = L.With("component", "service.blobs")
}

// Shutdown flushes pending lines and closes the file sink.
func Shutdown() error {
	var errs []error
	stopOnce.Do(func() {
		if logWriter != nil {
			errs = append(errs, logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

func parseFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if p := profile(lc); p == "debug" || p == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	var order []string
	if raw = strings.TrimSpace(raw); raw != "default" {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				order = append(order, key)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLevel(raw string) slog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// sampleRatio keeps 1/50 unless raw parses; "0" disables sampling.
func sampleRatio(raw string) (int, int) {
	if strings.TrimSpace(raw) == "" {
		return 1, 50
	}
	if n, d := parseRatioSpec(raw); n > 0 && d > 0 {
		return n, d
	}
	return 0, 0
}

func openSinks(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir == "" || file == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, errors.New("logger: create log dir: " + err.Error())
	}
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(dir, file),
		MaxSize:    positive(lc.MaxSizeMB, 50),
		MaxBackups: positive(lc.MaxBackups, 3),
		MaxAge:     positive(lc.MaxAgeDays, 30),
	}
	return append(writers, sink), []io.Closer{sink}, nil
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.TrimSpace(lc.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent writes attrs behind a leading event attribute. A nil logg falls
// back to the logger carried by ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Debug logs a debug-level event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. LOG_TRACE=1 lets every line through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}
