package helpers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/m3rciful/hrvbot/core/logger"
	"github.com/m3rciful/hrvbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const (
	sendAttempts = 3
	sendBackoff  = time.Second
)

// SendText sends raw text (no parse mode) to the current recipient.
// A nil markup sends the message without a keyboard change.
func SendText(ctx context.Context, c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return withRetry(ctx, "send.text", func() error {
		if markup != nil {
			return c.Send(text, &tele.SendOptions{ReplyMarkup: markup})
		}
		return c.Send(text)
	})
}

// SendPhoto uploads an image read from r with an optional caption.
// The reader is consumed by the first attempt, so uploads are not retried.
func SendPhoto(ctx context.Context, c tele.Context, r io.Reader, caption string) error {
	photo := &tele.Photo{File: tele.FromReader(r), Caption: caption}
	start := time.Now()
	if err := c.Send(photo); err != nil {
		logger.Warn(ctx, "tg.sender", "send.fail",
			slog.String("action", "send.photo"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return fmt.Errorf("send photo: %w", err)
	}
	logger.Debug(ctx, "tg.sender", "send.success",
		slog.String("action", "send.photo"),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Download opens the Telegram file identified by fileID.
func Download(ctx context.Context, bot *tele.Bot, fileID string) (io.ReadCloser, error) {
	if bot == nil {
		return nil, fmt.Errorf("file.download: bot not started")
	}
	var rc io.ReadCloser
	err := withRetry(ctx, "file.download", func() error {
		var err error
		rc, err = bot.File(&tele.File{FileID: fileID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func withRetry(ctx context.Context, action string, run func() error) error {
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		lastErr = run()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info(ctx, "tg.sender", "send.retry.success",
					slog.String("action", action),
					slog.Int("attempt", attempt),
					slog.Duration("elapsed", time.Since(start)),
				)
			}
			return nil
		}
		if !netutil.ShouldRetry(lastErr) || attempt == sendAttempts {
			break
		}
		delay := sendBackoff * time.Duration(attempt)
		if wait := netutil.RetryAfter(lastErr); wait > 0 {
			delay = time.Duration(wait) * time.Second
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", action, ctx.Err())
		case <-timer.C:
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			slog.String("action", action),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
	}
	logger.Warn(ctx, "tg.sender", "send.fail",
		slog.String("action", action),
		slog.String("err", logger.SanitizeLimit(lastErr.Error(), 256)),
	)
	return fmt.Errorf("%s: %w", action, lastErr)
}
