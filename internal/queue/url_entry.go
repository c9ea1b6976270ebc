package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/spool/internal/extract"
	"github.com/desertthunder/spool/internal/media"
	"github.com/desertthunder/spool/internal/shared"
)

// URLEntry is a queued media item that requires extraction, download and
// local caching before playback.
type URLEntry struct {
	entryState
	deps             Deps
	locator          string
	title            string
	duration         *time.Duration
	expectedFilename string
	meta             Meta
	filter           string
}

// NewURLEntry creates a URL entry. A nil duration means unknown; it will be
// probed from the downloaded artifact.
func NewURLEntry(deps Deps, locator, title string, duration *time.Duration, expectedFilename string, meta Meta) *URLEntry {
	if title == "" {
		title = "Untitled"
	}
	return &URLEntry{
		deps:             deps,
		locator:          locator,
		title:            title,
		duration:         duration,
		expectedFilename: expectedFilename,
		meta:             meta,
		filter:           media.NeutralFilter,
	}
}

func (e *URLEntry) Title() string   { return e.title }
func (e *URLEntry) Locator() string { return e.locator }
func (e *URLEntry) Meta() Meta      { return e.meta }

func (e *URLEntry) Duration() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.duration == nil {
		return 0, false
	}
	return *e.duration, true
}

// ExpectedFilename is the deterministic cache name derived from the source
// locator at add time.
func (e *URLEntry) ExpectedFilename() string { return e.expectedFilename }

// Filter is the per-entry playback filter computed by loudness analysis,
// or the neutral filter.
func (e *URLEntry) Filter() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// Restore rehydrates persisted state on a freshly constructed entry.
func (e *URLEntry) Restore(filename, filter string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filename = filename
	if filter != "" {
		e.filter = filter
	}
}

// Ready returns a readiness future, starting the download routine if the
// artifact is not yet materialized and no download is in flight.
func (e *URLEntry) Ready() *Future {
	return e.ready(e, e.download)
}

// download is the URL-variant download routine. It resolves the cache,
// fetches when needed, probes duration and loudness, then resolves all
// pending waiters. The in-flight flag clears on every exit path.
func (e *URLEntry) download() {
	// Downloads run to completion once started; cancellation is not part
	// of the entry contract.
	ctx := context.Background()

	if err := e.prepare(ctx); err != nil {
		if e.deps.Logger != nil {
			e.deps.Logger.Errorf("entry preparation failed for %s: %v", e.locator, err)
		}
		e.finish(e, err)
		publishFailed(e.deps, e, err)
		return
	}

	e.finish(e, nil)
	publishReady(e.deps, e)
}

func (e *URLEntry) prepare(ctx context.Context) error {
	cacheDir := e.deps.Config.Cache.Dir
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	expectedBase := filepath.Base(e.expectedFilename)
	extractorName, _, _ := strings.Cut(expectedBase, "-")

	if extractorName == "generic" {
		if err := e.resolveGeneric(ctx, cacheDir, expectedBase); err != nil {
			return err
		}
	} else {
		if err := e.resolveSpecific(ctx, cacheDir, expectedBase); err != nil {
			return err
		}
	}

	e.probeDuration(ctx)
	e.analyzeLoudness(ctx)
	return nil
}

// resolveGeneric handles the generic extractor: cached artifacts carry a
// content-hash suffix, and a size match against the remote Content-Length
// decides reuse versus re-fetch.
func (e *URLEntry) resolveGeneric(ctx context.Context, cacheDir, expectedBase string) error {
	noExt := strings.TrimSuffix(expectedBase, filepath.Ext(expectedBase))

	local := ""
	if names, err := listDir(cacheDir); err == nil {
		for _, name := range names {
			stem := name
			if i := strings.LastIndex(name, "-"); i >= 0 {
				stem = name[:i]
			}
			if stem == noExt {
				local = filepath.Join(cacheDir, name)
				break
			}
		}
	}

	if local == "" {
		return e.fetch(ctx, true)
	}

	remoteSize, err := shared.ContentLength(ctx, e.deps.Client, e.locator)
	if err != nil {
		remoteSize = 0
	}
	info, err := os.Stat(local)
	if err != nil || info.Size() != remoteSize {
		return e.fetch(ctx, true)
	}

	if e.deps.Logger != nil {
		e.deps.Logger.Infof("download cached: %s", e.locator)
	}
	e.setFilename(local)
	return nil
}

// resolveSpecific handles specific extractors, which trust a filename match:
// an exact basename hit or a same-stem hit with a differing extension both
// count as cached.
func (e *URLEntry) resolveSpecific(ctx context.Context, cacheDir, expectedBase string) error {
	noExt := strings.TrimSuffix(expectedBase, filepath.Ext(expectedBase))

	names, err := listDir(cacheDir)
	if err != nil {
		names = nil
	}

	for _, name := range names {
		if name == expectedBase {
			e.setFilename(filepath.Join(cacheDir, name))
			if e.deps.Logger != nil {
				e.deps.Logger.Infof("download cached: %s", e.locator)
			}
			return nil
		}
	}
	for _, name := range names {
		if strings.TrimSuffix(name, filepath.Ext(name)) == noExt {
			e.setFilename(filepath.Join(cacheDir, name))
			if e.deps.Logger != nil {
				e.deps.Logger.Infof("download cached (different extension): %s", e.locator)
			}
			return nil
		}
	}

	return e.fetch(ctx, false)
}

// fetch re-runs extraction with download enabled. When hash is set the
// final filename gets a short content hash appended before the rename, to
// disambiguate colliding names across sources.
func (e *URLEntry) fetch(ctx context.Context, hash bool) error {
	if e.deps.Logger != nil {
		e.deps.Logger.Infof("download started: %s", e.locator)
	}

	res, err := e.deps.Dispatcher.Dispatch(ctx, e.locator, extract.Options{Download: true, Process: true})
	if err != nil {
		return err
	}

	filename := res.Filename
	if filename == "" {
		filename = e.deps.Dispatcher.PrepareFilename(res)
	}

	if hash {
		filename = e.disambiguate(filename)
	}

	if e.deps.Logger != nil {
		e.deps.Logger.Infof("download complete: %s", e.locator)
	}
	e.setFilename(filename)
	return nil
}

func (e *URLEntry) disambiguate(unhashed string) string {
	sum, err := shared.MD5SumShort(unhashed, 8)
	if err != nil {
		return unhashed
	}

	ext := filepath.Ext(unhashed)
	hashed := strings.TrimSuffix(unhashed, ext) + "-" + sum + ext

	if _, err := os.Stat(hashed); err == nil {
		// The hashed artifact was already there from an earlier fetch.
		os.Remove(unhashed)
	} else if err := os.Rename(unhashed, hashed); err != nil {
		return unhashed
	}
	return hashed
}

func (e *URLEntry) probeDuration(ctx context.Context) {
	e.mu.Lock()
	known := e.duration != nil
	path := e.filename
	e.mu.Unlock()
	if known || e.deps.Prober == nil || path == "" {
		return
	}

	d, err := e.deps.Prober.Duration(ctx, path)
	if err != nil {
		if e.deps.Logger != nil {
			e.deps.Logger.Errorf("cannot probe duration of %s; wait estimates will be unavailable until this entry is removed: %v", path, err)
		}
		return
	}

	e.mu.Lock()
	e.duration = &d
	e.mu.Unlock()
}

func (e *URLEntry) analyzeLoudness(ctx context.Context) {
	if !e.deps.Config.Extractor.Normalize || e.deps.Prober == nil {
		return
	}

	e.mu.Lock()
	path := e.filename
	e.mu.Unlock()

	filter, err := e.deps.Prober.Loudness(ctx, path)
	if err != nil {
		if e.deps.Logger != nil {
			e.deps.Logger.Errorf("loudness analysis failed, track will not be equalized: %v", err)
		}
		filter = media.NeutralFilter
	}

	e.mu.Lock()
	e.filter = filter
	e.mu.Unlock()
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	return names, nil
}
