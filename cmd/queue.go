package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spool/internal/formatter"
	"github.com/desertthunder/spool/internal/persist"
	"github.com/desertthunder/spool/internal/queue"
	"github.com/desertthunder/spool/internal/shared"
	"github.com/urfave/cli/v3"
)

// Add enqueues a single downloadable item and reports its position. A
// playlist locator is rejected with a pointer at the import command.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	locator := cmd.StringArg("locator")
	if locator == "" {
		return fmt.Errorf("%w: locator", shared.ErrMissingArgument)
	}

	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	s.Lock()
	entry, position, err := s.Playlist.Add(ctx, locator, cmd.Bool("head"), r.meta(cmd))
	s.Unlock()
	if err != nil {
		var wrongType *shared.WrongEntryTypeError
		if errors.As(err, &wrongType) && wrongType.IsPlaylist {
			r.writePlainln("This looks like a playlist. Try: spool import %s", wrongType.UseLocator)
			return err
		}
		return err
	}

	r.recordMeta(entry)
	r.writePlainln("Queued %q at position %d", entry.Title(), position)
	return nil
}

// recordMeta remembers extraction metadata in the opt-in cache. Failures
// only cost the cache entry, never the add.
func (r *Runner) recordMeta(entry queue.Entry) {
	if !r.config.Cache.Metadata {
		return
	}

	path, err := r.metaCachePath()
	if err != nil {
		return
	}
	cache, err := persist.OpenMetaCache(path, r.logger)
	if err != nil {
		r.logger.Debugf("metadata cache unavailable: %v", err)
		return
	}
	defer cache.Close()

	meta := persist.CachedMeta{
		Locator:  entry.Locator(),
		Title:    entry.Title(),
		Filename: entry.Filename(),
	}
	if d, ok := entry.Duration(); ok {
		seconds := d.Seconds()
		meta.Duration = &seconds
	}
	if err := cache.Put(meta); err != nil {
		r.logger.Debugf("could not cache metadata for %s: %v", entry.Locator(), err)
	}
}

// Stream enqueues a live or direct stream at the tail of the queue.
func (r *Runner) Stream(ctx context.Context, cmd *cli.Command) error {
	locator := cmd.StringArg("locator")
	if locator == "" {
		return fmt.Errorf("%w: locator", shared.ErrMissingArgument)
	}

	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	s.Lock()
	entry, position, err := s.Playlist.AddStream(ctx, locator, r.meta(cmd))
	s.Unlock()
	if err != nil {
		return err
	}

	r.writePlainln("Queued stream %q at position %d", entry.Title(), position)
	return nil
}

// Import walks a playlist listing and enqueues every usable item.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	locator := cmd.StringArg("locator")
	if locator == "" {
		return fmt.Errorf("%w: locator", shared.ErrMissingArgument)
	}

	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	head := cmd.Bool("head")
	meta := r.meta(cmd)

	var added []queue.Entry
	var bad int
	s.Lock()
	if cmd.Bool("shallow") {
		added, err = s.Playlist.ImportShallow(ctx, locator, head, meta, nil)
	} else {
		added, bad, err = s.Playlist.Import(ctx, locator, head, meta)
	}
	s.Unlock()
	if err != nil {
		return err
	}

	for _, entry := range added {
		r.recordMeta(entry)
	}

	r.writePlainln("Imported %d entries", len(added))
	if bad > 0 {
		r.writePlainln("Skipped %d unusable items", bad)
	}
	return nil
}

// QueueList prints the queue in play order.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	entries := s.Playlist.Entries()
	if cmd.Bool("json") {
		data, err := formatter.QueueJSON(entries)
		if err != nil {
			return err
		}
		return r.writePlainln("%s", data)
	}

	return r.writePlain("%s", formatter.QueueListing(s.ID, entries))
}

// QueueShuffle randomizes the order of queued entries.
func (r *Runner) QueueShuffle(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	s.Lock()
	s.Playlist.Shuffle()
	s.Unlock()

	if err := r.registry.Save(s); err != nil {
		return err
	}
	return r.writePlainln("Shuffled %d entries", s.Playlist.Len())
}

// QueueClear drops every queued entry.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	s.Lock()
	n := s.Playlist.Len()
	s.Playlist.Clear()
	s.Unlock()

	return r.writePlainln("Cleared %d entries", n)
}

// QueueRemove removes the entry at a 1-based position.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	position := int(cmd.IntArg("position"))
	if position < 1 {
		return fmt.Errorf("%w: position must be 1 or greater", shared.ErrInvalidInput)
	}

	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	s.Lock()
	entry, err := s.Playlist.RemoveAt(position - 1)
	s.Unlock()
	if err != nil {
		return err
	}

	if err := r.registry.Save(s); err != nil {
		return err
	}
	return r.writePlainln("Removed %q from position %d", entry.Title(), position)
}

// QueueETA estimates how long until the entry at a 1-based position plays.
func (r *Runner) QueueETA(ctx context.Context, cmd *cli.Command) error {
	position := int(cmd.IntArg("position"))
	if position < 1 {
		return fmt.Errorf("%w: position must be 1 or greater", shared.ErrInvalidInput)
	}

	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	eta, err := s.Playlist.EstimateWait(position, nil, 0)
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientData) {
			return r.writePlainln("Not enough duration data to estimate position %d", position)
		}
		return err
	}

	return r.writePlainln("Position %d plays in %s (%s)",
		position, shared.FormatDuration(eta), formatter.ETAText(eta))
}

// QueueCount reports how many entries an author has queued.
func (r *Runner) QueueCount(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	author := cmd.Int("author")
	count := s.Playlist.CountFor(int64(author))

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"author": author, "count": count}, false)
	}
	return r.writePlainln("Author %d has %d queued entries", author, count)
}

// Next advances the queue: pops the head entry, waits until it is ready,
// and prints what would play.
func (r *Runner) Next(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session(cmd)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	entry, err := r.registry.Advance(waitCtx, s)
	if err != nil {
		return fmt.Errorf("entry did not become ready: %w", err)
	}
	if entry == nil {
		return shared.ErrEmptyQueue
	}

	r.writePlainln("Now playing: %s", entry.Title())
	r.writePlainln("Source: %s", entry.Filename())
	if d, ok := entry.Duration(); ok {
		r.writePlainln("Duration: %s", shared.FormatDuration(d))
	}
	return nil
}
