package helpers

import (
	"context"

	"github.com/m3rciful/hrvbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxStoreKey = "hrvbot.ctx"

// BuildContext returns the logging context for the update behind c, creating
// it on first use. The context carries rid, update, user and chat ids and the
// tg component logger. It is rooted at Background so work queued past the
// handler's return keeps it.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxStoreKey).(context.Context); ok {
		return ctx
	}
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.TG)
	c.Set(ctxStoreKey, ctx)
	return ctx
}

// WithHandler records handler on the stored context and returns it.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), handler)
	c.Set(ctxStoreKey, ctx)
	return ctx
}
