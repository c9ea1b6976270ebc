package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Cache     CacheConfig     `toml:"cache"`
	Extractor ExtractorConfig `toml:"extractor"`
	Sessions  SessionsConfig  `toml:"sessions"`
}

// CacheConfig controls the media cache directory and the opt-in extraction
// metadata cache.
type CacheConfig struct {
	Dir        string `toml:"dir"`
	Retain     bool   `toml:"retain"`
	Metadata   bool   `toml:"metadata"`
	MetadataDB string `toml:"metadata_db"`
}

// ExtractorConfig contains extraction dispatcher settings.
type ExtractorConfig struct {
	Workers       int     `toml:"workers"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Format        string  `toml:"format"`
	DefaultSearch string  `toml:"default_search"`
	Normalize     bool    `toml:"normalize"`
}

// SessionsConfig contains persisted session state settings.
type SessionsConfig struct {
	Dir string `toml:"dir"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.applyDefaults()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyDefaults()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Dir == "" {
		c.Cache.Dir = "audio_cache"
	}
	if c.Cache.MetadataDB == "" {
		c.Cache.MetadataDB = "metadata.db"
	}
	if c.Extractor.Workers <= 0 {
		c.Extractor.Workers = 2
	}
	if c.Extractor.Format == "" {
		c.Extractor.Format = "bestaudio/best"
	}
	if c.Extractor.DefaultSearch == "" {
		c.Extractor.DefaultSearch = "auto"
	}
	if c.Sessions.Dir == "" {
		c.Sessions.Dir = "data"
	}
}
