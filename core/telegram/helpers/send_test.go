package helpers

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/m3rciful/hrvbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "test", func() error {
		calls++
		return errors.New("bad request")
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d, err = %v; want one call and an error", calls, err)
	}
}

func TestWithRetryRetriesTransientError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "test", func() error {
		calls++
		if calls == 1 {
			return timeoutErr{}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("calls = %d, err = %v; want success on second call", calls, err)
	}
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, "test", func() error { return timeoutErr{} })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDownloadRequiresBot(t *testing.T) {
	if _, err := Download(context.Background(), nil, "file"); err == nil {
		t.Fatal("Download() without a bot should fail")
	}
}

func TestBuildContextIsCached(t *testing.T) {
	b, err := tele.NewBot(tele.Settings{Token: "1:x", Offline: true})
	if err != nil {
		t.Fatalf("NewBot() error = %v", err)
	}
	c := b.NewContext(tele.Update{ID: 5, Message: &tele.Message{
		Sender: &tele.User{ID: 42},
		Chat:   &tele.Chat{ID: 42},
		Text:   "/start",
	}})
	ctx := BuildContext(c)
	if logger.RIDFrom(ctx) != "5:42:42" || logger.UserIDFrom(ctx) != 42 {
		t.Fatalf("rid %q user %d", logger.RIDFrom(ctx), logger.UserIDFrom(ctx))
	}
	named := WithHandler(c, "start")
	if logger.HandlerFrom(BuildContext(c)) != "start" || logger.HandlerFrom(named) != "start" {
		t.Fatal("handler name not stored on the cached context")
	}
}
