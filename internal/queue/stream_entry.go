package queue

import (
	"context"
	"time"

	"github.com/desertthunder/spool/internal/extract"
)

// StreamEntry is a queued live stream. "Download" only resolves the
// destination URL; no artifact is ever cached, and the duration is never
// fixed.
type StreamEntry struct {
	entryState
	deps        Deps
	locator     string
	title       string
	destination string
	meta        Meta
}

// NewStreamEntry creates a stream entry. When the destination is already
// known the entry is ready immediately; resolution only happens again
// through the fallback path if the destination stops working.
func NewStreamEntry(deps Deps, locator, title, destination string, meta Meta) *StreamEntry {
	if title == "" {
		title = "Untitled"
	}
	e := &StreamEntry{
		deps:        deps,
		locator:     locator,
		title:       title,
		destination: destination,
		meta:        meta,
	}
	if destination != "" {
		e.filename = destination
	}
	return e
}

func (e *StreamEntry) Title() string   { return e.title }
func (e *StreamEntry) Locator() string { return e.locator }
func (e *StreamEntry) Meta() Meta      { return e.meta }

// Duration is always unknown for a live stream.
func (e *StreamEntry) Duration() (time.Duration, bool) { return 0, false }

// Destination is the resolved stream URL, when known.
func (e *StreamEntry) Destination() string { return e.destination }

// RestoreFilename rehydrates the resolved handle from a persisted record.
func (e *StreamEntry) RestoreFilename(fn string) {
	e.setFilename(fn)
}

// Ready returns a readiness future, resolving the destination if needed.
func (e *StreamEntry) Ready() *Future {
	return e.ready(e, func() { e.resolve(false) })
}

// resolve resolves the stream destination. A failed resolution retries once
// through the alternate destination before failing.
func (e *StreamEntry) resolve(fallback bool) {
	ctx := context.Background()

	locator := e.locator
	if fallback {
		locator = e.destination
	}

	res, err := e.deps.Dispatcher.Dispatch(ctx, locator, extract.Options{Process: true})
	if err != nil {
		if !fallback && e.destination != "" {
			e.resolve(true)
			return
		}
		if e.deps.Logger != nil {
			e.deps.Logger.Errorf("stream resolution failed for %s: %v", e.locator, err)
		}
		e.finish(e, err)
		publishFailed(e.deps, e, err)
		return
	}

	e.setFilename(res.URL)
	e.finish(e, nil)
	publishReady(e.deps, e)
}
