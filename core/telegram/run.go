package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/hrvbot/core/config"
	"github.com/m3rciful/hrvbot/core/logger"
	tghelpers "github.com/m3rciful/hrvbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const defaultStopTimeout = 30 * time.Second

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	Middlewares []Middleware
	Routes      []Route

	// Synchronous makes telebot handle updates one at a time in receipt order.
	// Handlers are then expected to hand slow work off and return quickly.
	Synchronous bool

	DisableWebhookCleanup bool
	DisableCommandMenu    bool
	// Offline builds the bot without contacting the API.
	Offline bool
	// StopTimeout bounds OnStop; zero means 30s.
	StopTimeout time.Duration

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Registry *Registry
}

// NewRuntime builds the bot with middlewares and routes installed but
// does not start polling.
func NewRuntime(opts RunOptions) (Runtime, error) {
	if opts.Config == nil {
		return Runtime{}, errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token: cfg.Telegram.Token,
		Poller: BuildPoller(PollerOptions{
			RunMode:                cfg.Telegram.RunMode,
			LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
			Webhook: WebhookOptions{
				Listen: cfg.Webhook.Listen,
				Port:   cfg.Webhook.Port,
				URL:    cfg.Webhook.URL,
			},
		}),
		Client:      BuildHTTPClient(HTTPClientOptions{}),
		Synchronous: opts.Synchronous,
		Offline:     opts.Offline,
		OnError:     onError,
	})
	if err != nil {
		return Runtime{}, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	return Runtime{Bot: bot, Registry: reg}, nil
}

func onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error", slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
}

// RunTelegram runs the bot until ctx is done, then calls OnStop with a fresh
// bounded context so hooks can drain.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	rt, err := NewRuntime(opts)
	if err != nil {
		return err
	}
	prepare(ctx, rt, opts, time.Since(start))

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		rt.Bot.Start()
		close(done)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		rt.Bot.Stop()
		<-done
		if !errors.Is(ctx.Err(), context.Canceled) {
			runErr = ctx.Err()
		}
	case <-done:
	}

	if opts.OnStop != nil {
		timeout := opts.StopTimeout
		if timeout <= 0 {
			timeout = defaultStopTimeout
		}
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := opts.OnStop(stopCtx, rt); err != nil {
			return err
		}
	}
	return runErr
}

// prepare logs the run mode, clears a stale webhook before long polling and
// publishes the command menu.
func prepare(ctx context.Context, rt Runtime, opts RunOptions, took time.Duration) {
	switch p := rt.Bot.Poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
	case *tele.LongPoller:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("poll_timeout", p.Timeout),
			slog.Duration("duration", took),
		)
		if !opts.DisableWebhookCleanup {
			if err := rt.Bot.RemoveWebhook(false); err != nil {
				logger.Warn(ctx, "tg", "webhook.delete", slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
			}
		}
	}

	if !opts.DisableCommandMenu {
		if err := rt.Bot.SetCommands(rt.Registry.Menu()); err != nil {
			logger.Warn(ctx, "tg.wire", "menu.set_failed", slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		}
	}
}
