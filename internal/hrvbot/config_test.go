package hrvbot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/hrvbot/core/config"
	coredatabase "github.com/m3rciful/hrvbot/core/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"telegram:",
		"  token: abc",
		"database:",
		"  driver: memory",
		"storage:",
		"  root: /var/lib/hrvbot",
		"provider:",
		"  endpoint: https://hrv.example/api",
		"dialogs:",
		"  reprompt_on_mismatch: true",
		"turns:",
		"  shards: 2",
		"  max_duration_seconds: 5",
		"",
	}, "\n"))

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Telegram.Token != "abc" || cfg.Telegram.RunMode != coreconfig.RunModeLongpoll {
		t.Fatalf("core section = %+v", cfg.Telegram)
	}
	if cfg.Database.Driver != coredatabase.DriverMemory || cfg.Storage.Root != "/var/lib/hrvbot" {
		t.Fatalf("storage sections = %+v %+v", cfg.Database, cfg.Storage)
	}
	if !cfg.Dialogs.RepromptOnMismatch || cfg.Turns.Shards != 2 || cfg.TurnTimeout() != 5*time.Second {
		t.Fatalf("dialogs/turns = %+v %+v", cfg.Dialogs, cfg.Turns)
	}
	if cfg.ProviderTimeout() != 30*time.Second {
		t.Fatalf("provider timeout = %v, want default 30s", cfg.ProviderTimeout())
	}
	if strings.Join(cfg.Provider.ServedTitles, ",") != "PSD,AR PSD" {
		t.Fatalf("served titles = %v", cfg.Provider.ServedTitles)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PROVIDER_ENDPOINT", "https://env.example/api")
	t.Setenv("DB_DRIVER", "memory")
	path := writeConfig(t, "telegram:\n  token: abc\nprovider:\n  endpoint: https://file.example/api\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Provider.Endpoint != "https://env.example/api" {
		t.Fatalf("endpoint = %q", cfg.Provider.Endpoint)
	}
}

func TestNormalize(t *testing.T) {
	base := func() Config {
		var c Config
		c.Telegram.Token = "t"
		return c
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		driver  string
	}{
		{name: "postgres needs name", mutate: func(*Config) {}, wantErr: true},
		{name: "postgres default", mutate: func(c *Config) { c.Database.Name = "hrv" }, driver: coredatabase.DriverPostgres},
		{name: "sqlite alias", mutate: func(c *Config) { c.Database.Driver = "SQLite"; c.Database.Path = "hrv.db" }, driver: coredatabase.DriverSQLite},
		{name: "sqlite needs path", mutate: func(c *Config) { c.Database.Driver = "sqlite3" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Database.Driver = "memory"; c.Provider.TimeoutSeconds = -1 }, wantErr: true},
		{name: "negative shards", mutate: func(c *Config) { c.Database.Driver = "memory"; c.Turns.Shards = -1 }, wantErr: true},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = ""; c.Database.Driver = "memory" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Database.Driver != tt.driver {
				t.Fatalf("driver = %q, want %q", cfg.Database.Driver, tt.driver)
			}
		})
	}
}
