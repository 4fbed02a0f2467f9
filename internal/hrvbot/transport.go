package hrvbot

import (
	"context"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/hrvbot/core/telegram/helpers"
	"github.com/m3rciful/hrvbot/core/telegram/keyboard"
	"github.com/m3rciful/hrvbot/internal/dialog"
	"github.com/m3rciful/hrvbot/internal/reply"

	tele "gopkg.in/telebot.v4"
)

// chat sends replies to the chat of one update.
type chat struct {
	c tele.Context
}

func (t chat) SendText(ctx context.Context, text string, kb *reply.Keyboard) error {
	return helpers.SendText(ctx, t.c, text, markup(kb))
}

func (t chat) SendImage(ctx context.Context, r io.Reader, caption string) error {
	return helpers.SendPhoto(ctx, t.c, r, caption)
}

func markup(kb *reply.Keyboard) *tele.ReplyMarkup {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return keyboard.RemoveKeyboard()
	default:
		return keyboard.OneTimeChoice(kb.Placeholder, kb.Options...)
	}
}

// botMedia downloads attachments through the running bot. It is bound in
// the start hook, before the first update arrives.
type botMedia struct {
	bot atomic.Pointer[tele.Bot]
}

func (m *botMedia) Bind(b *tele.Bot) { m.bot.Store(b) }

func (m *botMedia) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	return helpers.Download(ctx, m.bot.Load(), fileID)
}

// eventFrom converts a message update. Updates without a sender or without
// a supported payload report false.
func eventFrom(c tele.Context) (dialog.Event, bool) {
	sender, msg := c.Sender(), c.Message()
	if sender == nil || msg == nil {
		return dialog.Event{}, false
	}
	u := dialog.User{ID: sender.ID, FirstName: sender.FirstName, LastName: sender.LastName}
	switch {
	case msg.Photo != nil:
		return dialog.PhotoEvent(u, msg.Photo.FileID), true
	case msg.Location != nil:
		return dialog.LocationEvent(u, widen(msg.Location.Lat), widen(msg.Location.Lng)), true
	case msg.Text != "":
		return dialog.TextEvent(u, msg.Text), true
	}
	return dialog.Event{}, false
}

// widen converts through the shortest decimal form so 52.52 stays 52.52.
func widen(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'f', -1, 32), 64)
	return v
}
