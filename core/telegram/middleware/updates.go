package middleware

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

const kindKey = "update_kind"

// UpdateObserver receives the kind of every inbound update.
type UpdateObserver func(kind string)

// CountUpdates tags each update with its kind and reports it to observe.
// A nil observe only tags.
func CountUpdates(observe UpdateObserver) func(tele.HandlerFunc) tele.HandlerFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			kind := "other"
			if msg := c.Message(); msg != nil {
				kind = MessageKind(msg)
			}
			c.Set(kindKey, kind)
			if observe != nil {
				observe(kind)
			}
			return next(c)
		}
	}
}

// UpdateKind returns the kind stored by CountUpdates, or derives it.
func UpdateKind(c tele.Context) string {
	if v, ok := c.Get(kindKey).(string); ok && v != "" {
		return v
	}
	if msg := c.Message(); msg != nil {
		return MessageKind(msg)
	}
	return "other"
}

// MessageKind names the payload carried by msg.
func MessageKind(msg *tele.Message) string {
	switch {
	case msg.Photo != nil:
		return "photo"
	case msg.Location != nil:
		return "location"
	case msg.Document != nil:
		return "document"
	case strings.HasPrefix(msg.Text, "/"):
		return "command"
	case msg.Text != "":
		return "text"
	default:
		return "other"
	}
}
