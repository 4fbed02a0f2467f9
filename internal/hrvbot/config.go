package hrvbot

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/hrvbot/core/config"
	coredatabase "github.com/m3rciful/hrvbot/core/database"
	"github.com/m3rciful/hrvbot/internal/linkimport"
)

// StorageConfig locates the blob store.
type StorageConfig struct {
	// Root is the directory holding users/, hrv/ and plots/. Empty keeps blobs in memory.
	Root string `yaml:"root" envconfig:"STORAGE_ROOT"`
}

// ProviderConfig points at the HRV data provider used by /link.
type ProviderConfig struct {
	Endpoint       string   `yaml:"endpoint" envconfig:"PROVIDER_ENDPOINT"`
	TimeoutSeconds int      `yaml:"timeout_seconds" envconfig:"PROVIDER_TIMEOUT_SECONDS"`
	ServedTitles   []string `yaml:"served_titles"`
}

// MetricsConfig enables the ops HTTP server when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// DialogsConfig tunes dialog replies.
type DialogsConfig struct {
	RepromptOnMismatch bool `yaml:"reprompt_on_mismatch" envconfig:"DIALOGS_REPROMPT_ON_MISMATCH"`
}

// TurnsConfig sizes the per-user turn queue.
type TurnsConfig struct {
	Shards             int `yaml:"shards" envconfig:"TURNS_SHARDS"`
	QueueSize          int `yaml:"queue_size" envconfig:"TURNS_QUEUE_SIZE"`
	MaxDurationSeconds int `yaml:"max_duration_seconds" envconfig:"TURNS_MAX_DURATION_SECONDS"`
}

// Config is the bot configuration: the core sections plus the bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Provider ProviderConfig      `yaml:"provider"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	Dialogs  DialogsConfig       `yaml:"dialogs"`
	Turns    TurnsConfig         `yaml:"turns"`
}

// LoadConfig reads path with .env and environment overrides and validates it.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch driver {
	case "":
		driver = coredatabase.DriverPostgres
	case coredatabase.DriverPostgres, coredatabase.DriverSQLite, coredatabase.DriverMemory:
	case "sqlite":
		driver = coredatabase.DriverSQLite
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite3, memory", c.Database.Driver)
	}
	c.Database.Driver = driver
	if driver == coredatabase.DriverSQLite && strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required for sqlite3")
	}
	if driver == coredatabase.DriverPostgres && strings.TrimSpace(c.Database.Name) == "" {
		return fmt.Errorf("database.name is required for postgres")
	}

	if c.Provider.TimeoutSeconds < 0 {
		return fmt.Errorf("provider.timeout_seconds must be >= 0")
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = 30
	}
	if len(c.Provider.ServedTitles) == 0 {
		c.Provider.ServedTitles = append([]string(nil), linkimport.DefaultServedTitles...)
	}

	if c.Turns.Shards < 0 || c.Turns.QueueSize < 0 || c.Turns.MaxDurationSeconds < 0 {
		return fmt.Errorf("turns settings must be >= 0")
	}
	return nil
}

// ProviderTimeout is the provider request timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// TurnTimeout bounds one queued turn; zero means the queue default.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.Turns.MaxDurationSeconds) * time.Second
}
