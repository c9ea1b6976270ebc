// package extract isolates blocking media extraction calls behind a bounded
// worker pool.
//
// The core abstraction is Dispatcher, which runs an Extractor on a
// fixed-size pool, offers a strict mode (first error surfaces) and a
// tolerant mode (per-item errors inside listings are swallowed), and routes
// strict-path errors to an optional hook.
package extract

import (
	"context"
	"strings"
	"time"
)

// Options control a single extraction call.
type Options struct {
	// Download fetches the media artifact in addition to its metadata.
	Download bool
	// Process resolves each listing item fully. When false, playlist-like
	// locators yield a flat, unprocessed listing.
	Process bool
	// Tolerant swallows errors on individual sub-items so a bulk listing
	// succeeds even when a handful of items are broken.
	Tolerant bool
}

// Result is a structured extraction result: either a single item or, for
// playlist-like locators, an item carrying a nested list of sub-items.
// Field tags follow the extractor's JSON dump so a dump parses directly.
type Result struct {
	Type       string    `json:"_type,omitempty"`
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
	WebpageURL string    `json:"webpage_url,omitempty"`
	Extractor  string    `json:"extractor,omitempty"`
	Duration   *float64  `json:"duration,omitempty"`
	IsLive     *bool     `json:"is_live,omitempty"`
	Ext        string    `json:"ext,omitempty"`
	Filename   string    `json:"_filename,omitempty"`
	Entries    []*Result `json:"entries,omitempty"`
}

// IsPlaylist reports whether the result is playlist-shaped. Presence of a
// sub-item list is what distinguishes a listing from a single item.
func (r *Result) IsPlaylist() bool {
	if r == nil {
		return false
	}
	return r.Type == "playlist" || len(r.Entries) > 0
}

// Live reports whether the result represents a live stream.
func (r *Result) Live() bool {
	return r != nil && r.IsLive != nil && *r.IsLive
}

// SourceLocator returns the best locator for re-dispatching this result:
// the webpage URL when present, the media URL otherwise.
func (r *Result) SourceLocator() string {
	if r == nil {
		return ""
	}
	if r.WebpageURL != "" {
		return r.WebpageURL
	}
	return r.URL
}

// DurationValue returns the probed duration. ok is false when the duration
// is unknown; a zero duration with ok true is valid data.
func (r *Result) DurationValue() (time.Duration, bool) {
	if r == nil || r.Duration == nil {
		return 0, false
	}
	return time.Duration(*r.Duration * float64(time.Second)), true
}

// Generic reports whether the result came from the generic extractor (or a
// similarly ambiguous one) that needs content-type probing.
func (r *Result) Generic() bool {
	if r == nil {
		return false
	}
	return r.Extractor == "generic" || strings.EqualFold(r.Extractor, "dropbox")
}

// Extractor retrieves metadata (and optionally media) for a locator.
// Implementations block; callers go through a Dispatcher.
type Extractor interface {
	Extract(ctx context.Context, locator string, opts Options) (*Result, error)
	// PrepareFilename computes the deterministic cache filename the
	// extractor would materialize r under.
	PrepareFilename(r *Result) string
}
