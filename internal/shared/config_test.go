package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("parses a full config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[cache]
dir = "my_cache"
retain = true
metadata = true
metadata_db = "meta.db"

[extractor]
workers = 4
rate_per_second = 2.5
format = "bestaudio"
default_search = "ytsearch"
normalize = true

[sessions]
dir = "state"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}

		if config.Cache.Dir != "my_cache" || !config.Cache.Retain {
			t.Errorf("cache = %+v", config.Cache)
		}
		if config.Extractor.Workers != 4 || config.Extractor.RatePerSecond != 2.5 {
			t.Errorf("extractor = %+v", config.Extractor)
		}
		if !config.Extractor.Normalize {
			t.Error("normalize not parsed")
		}
		if config.Sessions.Dir != "state" {
			t.Errorf("sessions = %+v", config.Sessions)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[cache\ndir ="), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("defaults fill omitted fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[cache]\nretain = true\n"), 0644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}

		if config.Cache.Dir != "audio_cache" {
			t.Errorf("Cache.Dir = %q", config.Cache.Dir)
		}
		if config.Extractor.Workers != 2 {
			t.Errorf("Extractor.Workers = %d", config.Extractor.Workers)
		}
		if config.Extractor.Format != "bestaudio/best" {
			t.Errorf("Extractor.Format = %q", config.Extractor.Format)
		}
		if config.Sessions.Dir != "data" {
			t.Errorf("Sessions.Dir = %q", config.Sessions.Dir)
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Cache.Dir == "" || config.Extractor.Workers <= 0 {
		t.Errorf("embedded defaults incomplete: %+v", config)
	}
	if config.Extractor.DefaultSearch != "auto" {
		t.Errorf("DefaultSearch = %q", config.Extractor.DefaultSearch)
	}
}

func TestCreateConfigFile(t *testing.T) {
	t.Run("creates from the embedded template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(path); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("created config does not parse: %v", err)
		}
		if config.Cache.Dir == "" {
			t.Error("created config missing cache dir")
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("# mine"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := CreateConfigFile(path); err == nil {
			t.Error("expected an error for an existing file")
		}
	})
}
