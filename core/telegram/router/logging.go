package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/hrvbot/core/logger"
	tghelpers "github.com/m3rciful/hrvbot/core/telegram/helpers"
	"github.com/m3rciful/hrvbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// routed runs fn under handler name and logs one update.routed line.
func routed(c tele.Context, name string, fn func() error) error {
	start := time.Now()
	tghelpers.WithHandler(c, name)
	err := fn()
	logRouted(c, name, start, "", err)
	return err
}

// skipped logs an update that had no handler to go to.
func skipped(c tele.Context, name string) {
	logRouted(c, name, time.Now(), "skip", nil)
}

func logRouted(c tele.Context, name string, start time.Time, status string, err error) {
	ctx := tghelpers.WithHandler(c, name)
	if status == "" {
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.String("kind", middleware.UpdateKind(c)),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "update.routed", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

type coder interface{ Code() string }

// deriveErrorCode prefers a Code() anywhere in the wrap chain and falls
// back to the outermost error type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
