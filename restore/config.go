package restore

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/scrollkeep/stability"
	"github.com/hazyhaar/scrollkeep/store"
)

// Config is the YAML-loadable configuration of an engine and, for the
// scrollwatch daemon, the pages it attaches to.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Debounce  time.Duration   `yaml:"debounce_window"`
	Grace     time.Duration   `yaml:"grace_window"`
	Store     StoreConfig     `yaml:"store"`
	Stability StabilityConfig `yaml:"stability"`
	Pages     []PageConfig    `yaml:"pages"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory | sqlite
	Path    string `yaml:"path"`    // sqlite only; empty means in-memory
}

// StabilityConfig selects and tunes the wait strategy.
type StabilityConfig struct {
	Strategy   string            `yaml:"strategy"` // quiet | fixed | hybrid
	FixedDelay time.Duration     `yaml:"fixed_delay"`
	MinDelay   time.Duration     `yaml:"min_delay"`
	Quiet      stability.Options `yaml:"quiet"`
}

// PageConfig is one page the scrollwatch daemon attaches an engine to.
type PageConfig struct {
	ID             string `yaml:"id"`
	URL            string `yaml:"url"`
	HeightSelector string `yaml:"height_selector"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("restore: parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Stability.Strategy == "" {
		c.Stability.Strategy = "quiet"
	}
}

// BuildStore constructs the configured persistence backend.
func (c *Config) BuildStore(logger *slog.Logger) (store.Store, error) {
	switch c.Store.Backend {
	case "", "memory":
		return store.NewMemory(store.WithLogger(logger)), nil
	case "sqlite":
		return store.OpenSQLite(c.Store.Path, store.WithLogger(logger))
	default:
		return nil, fmt.Errorf("restore: unknown store backend %q", c.Store.Backend)
	}
}

// BuildStrategy constructs the configured wait strategy.
func (c *Config) BuildStrategy(logger *slog.Logger) (stability.Strategy, error) {
	quiet := c.Stability.Quiet
	quiet.Logger = logger

	switch c.Stability.Strategy {
	case "", "quiet":
		return stability.NewQuietPeriod(quiet), nil
	case "fixed":
		return &stability.FixedDelay{Delay: c.Stability.FixedDelay}, nil
	case "hybrid":
		return &stability.Hybrid{MinDelay: c.Stability.MinDelay, Quiet: quiet}, nil
	default:
		return nil, fmt.Errorf("restore: unknown stability strategy %q", c.Stability.Strategy)
	}
}

// EngineOptions builds the engine options for this configuration.
func (c *Config) EngineOptions(logger *slog.Logger) (Options, error) {
	strategy, err := c.BuildStrategy(logger)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Strategy:       strategy,
		DebounceWindow: c.Debounce,
		GraceWindow:    c.Grace,
		Logger:         logger,
	}, nil
}
