package telegram

import (
	"fmt"
	"strings"

	"github.com/m3rciful/hrvbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Entry is a registered command under its canonical /name.
type Entry struct {
	Name string
	commands.Command
}

// Registry holds bot commands in registration order, which is also the
// order of the Telegram command menu.
type Registry struct {
	entries []Entry
	index   map[string]int // name or alias -> entries index
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

func slash(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// Register adds cmd under name, which must start with a slash. Aliases may
// omit it. A name or alias already taken is an error.
func (r *Registry) Register(name string, cmd commands.Command) error {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return fmt.Errorf("telegram: command %q must start with /", name)
	case cmd.Handler == nil:
		return fmt.Errorf("telegram: command %s has no handler", name)
	case cmd.Description == "":
		return fmt.Errorf("telegram: command %s has no description", name)
	}
	keys := []string{name}
	for _, alias := range cmd.Aliases {
		if alias != "" {
			keys = append(keys, slash(alias))
		}
	}
	for _, k := range keys {
		if _, taken := r.index[k]; taken {
			return fmt.Errorf("telegram: command %s already registered", k)
		}
	}
	for _, k := range keys {
		r.index[k] = len(r.entries)
	}
	r.entries = append(r.entries, Entry{Name: name, Command: cmd})
	return nil
}

// Entries returns the registered commands in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Len reports how many commands are registered.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup resolves a command name or alias, with or without the slash.
func (r *Registry) Lookup(name string) (Entry, bool) {
	i, ok := r.index[slash(name)]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Menu returns the visible commands as the Bot API expects them,
// without the leading slash.
func (r *Registry) Menu() []tele.Command {
	var menu []tele.Command
	for _, e := range r.entries {
		if !e.Hidden {
			menu = append(menu, tele.Command{Text: strings.TrimPrefix(e.Name, "/"), Description: e.Description})
		}
	}
	return menu
}
