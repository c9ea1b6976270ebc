package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/spool/internal/persist"
	"github.com/desertthunder/spool/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template, the cache and
// session directories, and the metadata database when enabled.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		r.logger.Info("config file already exists", "path", configPath)
	} else {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}

	for _, dir := range []string{config.Cache.Dir, config.Sessions.Dir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		r.logger.Info("directory ready", "path", dir)
	}

	if config.Cache.Metadata {
		path := config.Cache.MetadataDB
		if !filepath.IsAbs(path) {
			path = filepath.Join(config.Cache.Dir, path)
		}

		cache, err := persist.OpenMetaCache(path, r.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize metadata cache: %w", err)
		}
		cache.Close()
		r.logger.Info("metadata cache ready", "path", path)
	}

	r.writePlainln("Setup complete")
	return nil
}
