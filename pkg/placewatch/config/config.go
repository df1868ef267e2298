package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/placewatch/pkg/placewatch/internalerr"
)

// Feed identifies one RSS or Atom source within a market.
type Feed struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Market groups a place list and the feeds that cover it.
type Market struct {
	ID     int64    `yaml:"id"`
	Name   string   `yaml:"name"`
	Places []string `yaml:"places"`
	Feeds  []Feed   `yaml:"feeds"`
}

// Database selects and parameterizes a storage backend.
type Database struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	Path   string `yaml:"path"`   // sqlite file path
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// Redis holds the job queue connection settings.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Queue    string `yaml:"queue"`
}

// Newswire configures the article search API client.
type Newswire struct {
	Endpoint string   `yaml:"endpoint"`
	APIKeys  []string `yaml:"api_keys"`
	PageSize int      `yaml:"page_size"`
}

// Config is the top-level application configuration.
type Config struct {
	Markets  []Market `yaml:"markets"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Newswire Newswire `yaml:"newswire"`
}

// Load reads configuration from a YAML file. Secrets may be supplied
// through the environment instead of the file: PLACEWATCH_DB_DSN,
// PLACEWATCH_REDIS_PASSWORD and PLACEWATCH_API_KEY override their
// file counterparts when set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if dsn := os.Getenv("PLACEWATCH_DB_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if pw := os.Getenv("PLACEWATCH_REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if key := os.Getenv("PLACEWATCH_API_KEY"); key != "" {
		cfg.Newswire.APIKeys = append([]string{key}, cfg.Newswire.APIKeys...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings a run cannot proceed without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("%w: sqlite driver requires database.path", internalerr.ErrInvalidConfig)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: postgres driver requires database.dsn", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", internalerr.ErrInvalidConfig, c.Database.Driver)
	}

	seen := make(map[int64]bool, len(c.Markets))
	for _, m := range c.Markets {
		if m.ID == 0 {
			return fmt.Errorf("%w: market %q has no id", internalerr.ErrInvalidConfig, m.Name)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate market id %d", internalerr.ErrInvalidConfig, m.ID)
		}
		seen[m.ID] = true
		for _, f := range m.Feeds {
			if f.URL == "" {
				return fmt.Errorf("%w: feed %q in market %d has no url", internalerr.ErrInvalidConfig, f.Name, m.ID)
			}
		}
	}
	return nil
}

// Market returns the market with the given id.
func (c *Config) Market(id int64) (*Market, error) {
	for i := range c.Markets {
		if c.Markets[i].ID == id {
			return &c.Markets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: market %d not configured", internalerr.ErrInvalidConfig, id)
}
