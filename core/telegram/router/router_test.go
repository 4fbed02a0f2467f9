package router

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tg "github.com/m3rciful/hrvbot/core/telegram"
	"github.com/m3rciful/hrvbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func TestCommandName(t *testing.T) {
	tests := map[string]string{
		"/start":              "/start",
		"/link https://x?i=1": "/link",
		"/plot@hrv_bot":       "/plot",
	}
	for in, want := range tests {
		if got := commandName(in); got != want {
			t.Fatalf("commandName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	tests := map[string]string{
		"":         "unknown",
		"/Restore": "restore",
		" my cmd ": "my_cmd",
	}
	for in, want := range tests {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "link retry" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	if got := deriveErrorCode(codedErr{}); got != "LINK_RETRY" {
		t.Fatalf("coded = %q", got)
	}
	if got := deriveErrorCode(&plainErr{}); got != "PLAINERR" {
		t.Fatalf("pointer type = %q", got)
	}
	if got := deriveErrorCode(errors.New("x")); got != "ERRORSTRING" {
		t.Fatalf("errors.New = %q", got)
	}
	if got := deriveErrorCode(nil); got != "" {
		t.Fatalf("nil = %q", got)
	}
}

func TestDeriveErrorCodeUnwraps(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", codedErr{})
	if got := deriveErrorCode(err); got != "LINK_RETRY" {
		t.Fatalf("wrapped coded = %q", got)
	}
}

type recordingInbound struct{ got []string }

func (r *recordingInbound) Accept(c tele.Context) error {
	r.got = append(r.got, "inbound:"+c.Text())
	return nil
}

func handlerFor(t *testing.T, routes []tg.Route, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func TestMessageRoutesDispatch(t *testing.T) {
	b, err := tele.NewBot(tele.Settings{Token: "1:x", Offline: true})
	if err != nil {
		t.Fatalf("NewBot() error = %v", err)
	}
	in := &recordingInbound{}
	reg := tg.NewRegistry()
	if err := reg.Register("/plot", commands.Command{
		Description: "plots",
		Handler: func(c tele.Context) error {
			in.got = append(in.got, "command:"+c.Text())
			return nil
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	var documents int
	routes := MessageRoutes(in, reg, MessageOptions{UnknownDocument: func(tele.Context) error {
		documents++
		return nil
	}})

	text := handlerFor(t, routes, tele.OnText)
	for _, msg := range []string{"/plot@hrv_bot", "hello", "/nope"} {
		if err := text(b.NewContext(tele.Update{Message: &tele.Message{Text: msg}})); err != nil {
			t.Fatalf("text(%q) error = %v", msg, err)
		}
	}
	want := []string{"command:/plot@hrv_bot", "inbound:hello", "inbound:/nope"}
	if strings.Join(in.got, "|") != strings.Join(want, "|") {
		t.Fatalf("dispatch = %v, want %v", in.got, want)
	}

	doc := handlerFor(t, routes, tele.OnDocument)
	if err := doc(b.NewContext(tele.Update{Message: &tele.Message{Document: &tele.Document{}}})); err != nil || documents != 1 {
		t.Fatalf("document route: err %v, calls %d", err, documents)
	}

	failing := routed(b.NewContext(tele.Update{Message: &tele.Message{Text: "x"}}), "text", func() error {
		return errors.New("queue full")
	})
	if failing == nil {
		t.Fatal("routed should return the handler error")
	}
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	if err := reg.Register("/restore", commands.Command{Handler: func(tele.Context) error { return nil }, Description: "r", Aliases: []string{"images"}}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	routes := CommandRoutes(reg)
	if len(routes) != 2 || routes[0].Endpoint != "/restore" || routes[1].Endpoint != "/images" {
		t.Fatalf("routes = %+v", routes)
	}
}
