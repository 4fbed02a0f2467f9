package telegram

import (
	"github.com/m3rciful/hrvbot/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain for bots. observe,
// when set, receives the kind of every inbound update.
func DefaultMiddlewares(observe middleware.UpdateObserver) []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "updates", Use: middleware.CountUpdates(observe)},
	}
}
