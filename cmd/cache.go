package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/spool/internal/formatter"
	"github.com/desertthunder/spool/internal/persist"
	"github.com/desertthunder/spool/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// metaCachePath resolves the metadata database location, rooted in the
// cache directory unless configured absolute.
func (r *Runner) metaCachePath() (string, error) {
	if !r.config.Cache.Metadata {
		return "", fmt.Errorf("metadata caching is disabled; enable cache.metadata in the config")
	}

	path := r.config.Cache.MetadataDB
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.config.Cache.Dir, path)
	}
	return path, nil
}

// dirSize sums the sizes of regular files under root. An absent root is an
// empty cache, not an error.
func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}

// CacheInfo prints the media cache size and the metadata cache record count
// with the age of its oldest record.
func (r *Runner) CacheInfo(ctx context.Context, cmd *cli.Command) error {
	path, err := r.metaCachePath()
	if err != nil {
		return err
	}

	cache, err := persist.OpenMetaCache(path, r.logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	count, oldest, err := cache.Stats()
	if err != nil {
		return err
	}

	size, err := dirSize(r.config.Cache.Dir)
	if err != nil {
		return err
	}

	r.writePlainln("Media cache: %s (%s)", r.config.Cache.Dir, formatter.SizeText(size))
	r.writePlainln("Metadata cache: %s", path)
	r.writePlainln("Records: %d", count)
	if count > 0 {
		r.writePlainln("Oldest: %s", humanize.Time(oldest))
	}
	return nil
}

// CacheShow looks up the cached metadata for a single locator.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	locator := cmd.StringArg("locator")
	if locator == "" {
		return fmt.Errorf("%w: locator", shared.ErrMissingArgument)
	}

	path, err := r.metaCachePath()
	if err != nil {
		return err
	}

	cache, err := persist.OpenMetaCache(path, r.logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	meta, err := cache.Get(locator)
	if err != nil {
		return err
	}
	if meta == nil {
		return r.writePlainln("No cached metadata for %s", locator)
	}

	if cmd.Bool("json") {
		return r.writeJSON(meta, false)
	}

	r.writePlainln("Title: %s", meta.Title)
	if meta.Duration != nil {
		r.writePlainln("Duration: %s", shared.FormatDuration(time.Duration(*meta.Duration*float64(time.Second))))
	}
	if meta.Filename != "" {
		r.writePlainln("Filename: %s", meta.Filename)
	}
	r.writePlainln("Cached: %s", humanize.Time(meta.CachedAt))
	return nil
}

// CachePrune removes metadata records older than the --older-than duration.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("an --older-than duration greater than zero is required")
	}

	path, err := r.metaCachePath()
	if err != nil {
		return err
	}

	cache, err := persist.OpenMetaCache(path, r.logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	n, err := cache.Prune(time.Now().Add(-age))
	if err != nil {
		return err
	}

	r.writePlainln("Pruned %d records older than %s", n, age)
	return nil
}
