package router

import (
	"log/slog"

	"github.com/m3rciful/hrvbot/core/logger"
	tg "github.com/m3rciful/hrvbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes prepares one route per command and alias in reg.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	var routes []tg.Route
	for _, def := range reg.Entries() {
		name := normalizeHandlerName(def.Name)
		inner := def.Handler
		h := func(c tele.Context) error {
			return routed(c, name, func() error { return inner(c) })
		}
		routes = append(routes, tg.Route{Endpoint: def.Name, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", reg.Len()),
		slog.Int("routes", len(routes)),
	)

	return routes
}
