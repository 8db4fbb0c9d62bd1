package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"calltree/internal/engine/extract"
)

type Config struct {
	Version   int                 `toml:"version"`
	Workers   Workers             `toml:"workers"`
	Cache     Cache               `toml:"cache"`
	Watch     Watch               `toml:"watch"`
	Metrics   Metrics             `toml:"metrics"`
	Tracing   Tracing             `toml:"tracing"`
	Languages map[string]Language `toml:"languages"`
}

type Workers struct {
	Count int `toml:"count"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
	Rate         float64       `toml:"rate"`
	Burst        int           `toml:"burst"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type Tracing struct {
	Endpoint string `toml:"endpoint"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateWorkers(&cfg); err != nil {
		return nil, err
	}
	if err := validateCache(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateLanguages(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Workers.Count == 0 {
		cfg.Workers.Count = 8
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = "calltree.db"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.Rate <= 0 {
		cfg.Watch.Rate = 4
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 2
	}
	if len(cfg.Watch.ExcludeDirs) == 0 {
		cfg.Watch.ExcludeDirs = []string{".git", "node_modules", "target", "vendor"}
	}
	if strings.TrimSpace(cfg.Metrics.Addr) == "" {
		cfg.Metrics.Addr = "127.0.0.1:9090"
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	return nil
}

func validateWorkers(cfg *Config) error {
	if cfg.Workers.Count < 1 || cfg.Workers.Count > 256 {
		return fmt.Errorf("workers.count must be between 1 and 256, got %d", cfg.Workers.Count)
	}
	return nil
}

func validateCache(cfg *Config) error {
	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Path) == "" {
		return fmt.Errorf("cache.path must not be empty when cache is enabled")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	for name := range cfg.Languages {
		if _, ok := extract.SpecFor(name); !ok {
			return fmt.Errorf("unknown language %q in config (supported: %s)",
				name, strings.Join(extract.Languages(), ", "))
		}
	}
	return nil
}

// LanguageFor resolves a file path to a language name, honoring configured
// extension overrides before the built-in extension table.
func (c *Config) LanguageFor(path string) (string, bool) {
	lower := strings.ToLower(path)
	for name, lang := range c.Languages {
		if lang.Enabled != nil && !*lang.Enabled {
			continue
		}
		for _, ext := range lang.Extensions {
			if strings.HasSuffix(lower, strings.ToLower(ext)) {
				return name, true
			}
		}
	}

	name, ok := extract.DetectLanguage(path)
	if !ok {
		return "", false
	}
	if lang, configured := c.Languages[name]; configured && lang.Enabled != nil && !*lang.Enabled {
		return "", false
	}
	return name, true
}
