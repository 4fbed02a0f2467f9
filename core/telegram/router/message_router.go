package router

import (
	"strings"

	tg "github.com/m3rciful/hrvbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Inbound accepts content updates on behalf of the conversation layer.
type Inbound interface {
	Accept(c tele.Context) error
}

// MessageOptions controls fallback behaviour for unsupported updates.
type MessageOptions struct {
	UnknownDocument tele.HandlerFunc
}

// MessageRoutes builds handlers for text, photo, location and document updates.
// Text that names a registered command is routed to that command; everything
// else is handed to in. Recovery and logging come from the bot-wide chain.
func MessageRoutes(in Inbound, reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())

		if reg != nil && strings.HasPrefix(text, "/") {
			if cmd, ok := reg.Lookup(commandName(text)); ok {
				return routed(c, normalizeHandlerName(cmd.Name), func() error {
					return cmd.Handler(c)
				})
			}
		}

		if in != nil {
			return routed(c, "text", func() error {
				return in.Accept(c)
			})
		}

		skipped(c, "unknown_text")
		return nil
	}

	content := func(name string) tele.HandlerFunc {
		return func(c tele.Context) error {
			if in == nil {
				skipped(c, name)
				return nil
			}
			return routed(c, name, func() error {
				return in.Accept(c)
			})
		}
	}

	docHandler := func(c tele.Context) error {
		if opts.UnknownDocument != nil {
			return routed(c, "unexpected_document", func() error {
				return opts.UnknownDocument(c)
			})
		}
		skipped(c, "unexpected_document")
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: textHandler},
		{Endpoint: tele.OnPhoto, Handler: content("photo")},
		{Endpoint: tele.OnLocation, Handler: content("location")},
		{Endpoint: tele.OnDocument, Handler: docHandler},
	}
}

// commandName strips arguments and a @botname suffix from a command message.
func commandName(text string) string {
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return name
}
