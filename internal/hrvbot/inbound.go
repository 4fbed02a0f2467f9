package hrvbot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/hrvbot/core/logger"
	"github.com/m3rciful/hrvbot/core/telegram/helpers"
	"github.com/m3rciful/hrvbot/core/telegram/turns"
	"github.com/m3rciful/hrvbot/internal/conversation"
	"github.com/m3rciful/hrvbot/internal/metrics"

	tele "gopkg.in/telebot.v4"
)

const textDocument = "Please send images as photos, not as files."

// inbound queues every update as a turn of its sender. Telebot runs
// handlers synchronously, so turns are queued in receipt order.
type inbound struct {
	queue      *turns.Queue
	dispatcher *conversation.Dispatcher
	metrics    *metrics.Metrics
}

// Accept satisfies router.Inbound and serves as the handler of every command.
func (in *inbound) Accept(c tele.Context) error {
	e, ok := eventFrom(c)
	if !ok {
		return nil
	}
	out := chat{c: c}
	return in.enqueue(c, "turn."+e.Tag.String(), func(ctx context.Context) error {
		return in.dispatcher.Dispatch(ctx, e, out)
	})
}

// Document answers file uploads in turn order with a hint to send photos.
func (in *inbound) Document(c tele.Context) error {
	out := chat{c: c}
	return in.enqueue(c, "turn.document", func(ctx context.Context) error {
		return out.SendText(ctx, textDocument, nil)
	})
}

func (in *inbound) enqueue(c tele.Context, action string, run func(context.Context) error) error {
	ctx := helpers.BuildContext(c)
	var key int64
	if s := c.Sender(); s != nil {
		key = s.ID
	}
	if err := in.queue.Enqueue(ctx, key, action, run); err != nil {
		if in.metrics != nil {
			in.metrics.QueueRejected.Inc()
		}
		logger.Warn(ctx, "tg.turns", "turn.reject",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}
