package telegram

import (
	"testing"

	coreconfig "github.com/m3rciful/hrvbot/core/config"
	"github.com/m3rciful/hrvbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("/start", commands.Command{Handler: noop, Description: "help"}); err != nil {
		t.Fatalf("Register(/start) error = %v", err)
	}
	bad := map[string]commands.Command{
		"start":  {Handler: noop, Description: "no slash"},
		"/":      {Handler: noop, Description: "bare slash"},
		"/empty": {Handler: noop},
		"/nil":   {Description: "nil handler"},
		"/other": {Handler: noop, Description: "alias clash", Aliases: []string{"start"}},
	}
	for name, cmd := range bad {
		if err := reg.Register(name, cmd); err == nil {
			t.Fatalf("Register(%q) should fail", name)
		}
	}
	if err := reg.Register("/start", commands.Command{Handler: noop, Description: "duplicate"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if reg.Len() != 1 {
		t.Fatalf("registered %d commands, want 1", reg.Len())
	}
	if e, _ := reg.Lookup("start"); e.Description != "help" {
		t.Fatal("duplicate registration replaced the original command")
	}
}

func TestMenuKeepsOrderAndHidesCommands(t *testing.T) {
	reg := NewRegistry()
	for _, c := range []struct {
		name   string
		hidden bool
	}{{"/link", false}, {"/skip", true}, {"/conv", false}} {
		if err := reg.Register(c.name, commands.Command{Handler: noop, Description: c.name, Hidden: c.hidden}); err != nil {
			t.Fatalf("Register(%s) error = %v", c.name, err)
		}
	}
	menu := reg.Menu()
	if len(menu) != 2 || menu[0].Text != "link" || menu[1].Text != "conv" {
		t.Fatalf("menu = %+v", menu)
	}
	if all := reg.Entries(); len(all) != 3 || all[1].Name != "/skip" {
		t.Fatalf("entries = %+v", all)
	}
}

func TestLookupAliases(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("/restore", commands.Command{Handler: noop, Description: "restore", Aliases: []string{"images"}}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	for _, name := range []string{"/restore", "restore", "/images", "images"} {
		if e, ok := reg.Lookup(name); !ok || e.Name != "/restore" {
			t.Fatalf("Lookup(%q) = %q, %v", name, e.Name, ok)
		}
	}
	if _, ok := reg.Lookup("/nope"); ok {
		t.Fatal("Lookup found an unregistered command")
	}
}

func TestNewRuntimeOffline(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("/start", commands.Command{Handler: noop, Description: "help"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	rt, err := NewRuntime(RunOptions{
		Config:      &coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "1:x"}},
		Registry:    reg,
		Middlewares: DefaultMiddlewares(nil),
		Routes:      []Route{{Endpoint: "/start", Handler: noop}, {Endpoint: nil, Handler: noop}},
		Offline:     true,
	})
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	if rt.Registry != reg || rt.Bot == nil {
		t.Fatalf("runtime = %+v", rt)
	}
	if _, ok := rt.Bot.Poller.(*tele.LongPoller); !ok {
		t.Fatalf("poller = %T, want long poller", rt.Bot.Poller)
	}
	if _, err := NewRuntime(RunOptions{}); err == nil {
		t.Fatal("nil config should fail")
	}
}
