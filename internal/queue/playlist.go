package queue

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/spool/internal/events"
	"github.com/desertthunder/spool/internal/extract"
	"github.com/desertthunder/spool/internal/shared"
)

// Playlist manages the ordered list of entries that will be played.
// Structural mutations are serialized by the playlist's own lock, so
// concurrent readers always observe the state as of a completed mutation.
type Playlist struct {
	mu      sync.Mutex
	deps    Deps
	entries []Entry
}

// New creates an empty playlist for one playback session.
func New(deps Deps) *Playlist {
	return &Playlist{deps: deps}
}

// Len returns the number of queued entries.
func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Entries returns a snapshot of the queue in order.
func (p *Playlist) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Shuffle randomizes the queue order in place.
func (p *Playlist) Shuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	rand.Shuffle(len(p.entries), func(i, j int) {
		p.entries[i], p.entries[j] = p.entries[j], p.entries[i]
	})
}

// Clear empties the queue.
func (p *Playlist) Clear() {
	p.mu.Lock()
	p.entries = nil
	p.mu.Unlock()

	if p.deps.Bus != nil {
		p.deps.Bus.Publish(events.QueueClearedEvent{Session: p.deps.Session})
	}
}

// EntryAt returns the entry at index (0-based) without removing it.
func (p *Playlist) EntryAt(index int) (Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.entries) {
		return nil, fmt.Errorf("%w: %d", shared.ErrIndexOutOfRange, index)
	}
	return p.entries[index], nil
}

// RemoveAt removes and returns the entry at index (0-based).
func (p *Playlist) RemoveAt(index int) (Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.entries) {
		return nil, fmt.Errorf("%w: %d", shared.ErrIndexOutOfRange, index)
	}
	entry := p.entries[index]
	p.entries = append(p.entries[:index:index], p.entries[index+1:]...)
	return entry, nil
}

// Peek returns the next entry that would be scheduled for playback.
func (p *Playlist) Peek() (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return nil, false
	}
	return p.entries[0], true
}

// Advance pops the head entry, eagerly requests readiness of the new head
// so it downloads while the popped entry plays, and returns the popped
// entry's readiness future. ok is false when the queue was empty.
func (p *Playlist) Advance() (*Future, bool) {
	p.mu.Lock()
	if len(p.entries) == 0 {
		p.mu.Unlock()
		return nil, false
	}
	entry := p.entries[0]
	p.entries = p.entries[1:]
	var next Entry
	if len(p.entries) > 0 {
		next = p.entries[0]
	}
	p.mu.Unlock()

	if next != nil {
		next.Ready()
	}
	return entry.Ready(), true
}

// Add validates and appends a single locator, without starting its
// download unless it lands at the head. Playlist-shaped results are
// rejected with a [shared.WrongEntryTypeError] carrying the corrected
// locator; live results delegate to stream handling; the generic extractor
// additionally gets a content-type probe to catch raw streams
// misidentified as files.
func (p *Playlist) Add(ctx context.Context, locator string, head bool, meta Meta) (Entry, int, error) {
	info, err := p.deps.Dispatcher.Dispatch(ctx, locator, extract.Options{Process: true})
	if err != nil {
		return nil, 0, err
	}

	if info.IsPlaylist() {
		return nil, 0, &shared.WrongEntryTypeError{
			IsPlaylist: true,
			UseLocator: info.SourceLocator(),
		}
	}

	if info.Live() {
		return p.addStream(ctx, locator, info, meta)
	}

	if info.Generic() {
		entry, pos, routed, err := p.routeByContentType(ctx, locator, info, meta)
		if routed || err != nil {
			return entry, pos, err
		}
	}

	entry := NewURLEntry(
		p.deps,
		locator,
		info.Title,
		addDuration(info),
		p.deps.Dispatcher.PrepareFilename(info),
		meta,
	)
	pos := p.insert(entry, head)
	return entry, pos, nil
}

// routeByContentType probes the resolved URL's Content-Type. text/html on
// the generic extractor is assumed to be a stream; application/* and
// image/* types that are not ogg or an octet stream are rejected.
func (p *Playlist) routeByContentType(ctx context.Context, locator string, info *extract.Result, meta Meta) (Entry, int, bool, error) {
	contentType, err := shared.ContentType(ctx, p.deps.Client, info.URL)
	if err != nil {
		if p.deps.Logger != nil {
			p.deps.Logger.Warnf("failed to get content type for %s: %v", locator, err)
		}
		return nil, 0, false, nil
	}
	if contentType == "" {
		return nil, 0, false, nil
	}

	switch {
	case strings.HasPrefix(contentType, "application/") || strings.HasPrefix(contentType, "image/"):
		if !strings.Contains(contentType, "/ogg") && !strings.Contains(contentType, "/octet-stream") {
			return nil, 0, false, fmt.Errorf("%w: invalid content type %q for %s", shared.ErrExtraction, contentType, locator)
		}
	case strings.HasPrefix(contentType, "text/html") && info.Extractor == "generic":
		if p.deps.Logger != nil {
			p.deps.Logger.Warnf("got text/html for content type, assuming %s is a stream", locator)
		}
		entry, pos, err := p.addStream(ctx, locator, info, meta)
		return entry, pos, true, err
	case !strings.HasPrefix(contentType, "audio/") && !strings.HasPrefix(contentType, "video/"):
		if p.deps.Logger != nil {
			p.deps.Logger.Warnf("questionable content type %q for %s", contentType, locator)
		}
	}
	return nil, 0, false, nil
}

// AddStream appends a live stream entry. The entry never has a fixed
// duration and its "download" only resolves the destination URL.
func (p *Playlist) AddStream(ctx context.Context, locator string, meta Meta) (Entry, int, error) {
	return p.addStream(ctx, locator, nil, meta)
}

func (p *Playlist) addStream(ctx context.Context, locator string, info *extract.Result, meta Meta) (Entry, int, error) {
	if info == nil {
		res, err := p.deps.Dispatcher.Dispatch(ctx, locator, extract.Options{Process: true})
		if err != nil {
			if abs, pathErr := filepath.Abs(locator); pathErr == nil {
				if _, statErr := os.Stat(abs); statErr == nil {
					return nil, 0, fmt.Errorf("%w: %s is not a stream, it is a file path", shared.ErrExtraction, locator)
				}
			}
			// The extractor refused it; assume a direct stream URL.
			if p.deps.Logger != nil {
				p.deps.Logger.Debugf("assuming %s is a direct stream", locator)
			}
			info = &extract.Result{Title: locator}
		} else {
			info = res
		}
	}

	if info.IsLive == nil && info.Extractor != "" && info.Extractor != "generic" {
		return nil, 0, fmt.Errorf("%w: %s is not a stream", shared.ErrExtraction, locator)
	}

	destination := locator
	if info.Extractor != "" {
		destination = info.URL
	}

	entry := NewStreamEntry(p.deps, locator, info.Title, destination, meta)
	pos := p.insert(entry, false)
	return entry, pos, nil
}

// Import resolves a playlist-like locator to its sub-item listing and
// constructs one entry per sub-item from fields already present in the
// listing, without extracting each item's media. Individual bad items are
// counted and skipped; the returned entries keep the listing's order
// whether inserted at head or tail.
func (p *Playlist) Import(ctx context.Context, locator string, head bool, meta Meta) ([]Entry, int, error) {
	position := 1
	if !head {
		position = p.Len() + 1
	}

	info, err := p.deps.Dispatcher.SafeDispatch(ctx, locator, extract.Options{Process: true})
	if err != nil {
		return nil, 0, err
	}

	items := info.Entries
	if head {
		items = reversed(items)
	}

	var added []Entry
	bad := 0
	for _, item := range items {
		if item == nil {
			bad++
			continue
		}

		itemLocator := importLocator(info, item)
		if itemLocator == "" {
			bad++
			if p.deps.Logger != nil {
				p.deps.Logger.Warnf("could not add listing item %q: no locator", item.Title)
			}
			continue
		}

		entry := NewURLEntry(
			p.deps,
			itemLocator,
			item.Title,
			importDuration(item),
			p.deps.Dispatcher.PrepareFilename(item),
			meta,
		)
		p.insert(entry, head)
		added = append(added, entry)
	}

	if bad > 0 && p.deps.Logger != nil {
		p.deps.Logger.Infof("skipped %d bad entries", bad)
	}

	if head {
		added = reversed(added)
	}
	return added, position, nil
}

// ImportShallow walks an unprocessed listing and re-resolves each item into
// a full entry via Add, tolerating per-item failures. buildLocator maps a
// listing item to its media locator; nil uses a sensible default.
func (p *Playlist) ImportShallow(ctx context.Context, locator string, head bool, meta Meta, buildLocator func(listing, item *extract.Result) string) ([]Entry, error) {
	info, err := p.deps.Dispatcher.SafeDispatch(ctx, locator, extract.Options{})
	if err != nil {
		return nil, err
	}
	if buildLocator == nil {
		buildLocator = shallowLocator
	}

	items := info.Entries
	if head {
		items = reversed(items)
	}

	var added []Entry
	bad := 0
	for _, item := range items {
		if item == nil {
			bad++
			continue
		}

		entry, _, err := p.Add(ctx, buildLocator(info, item), head, meta)
		if err != nil {
			bad++
			if p.deps.Logger != nil {
				p.deps.Logger.Warnf("error adding listing item %q: %v", item.ID, err)
			}
			continue
		}
		added = append(added, entry)
	}

	if bad > 0 && p.deps.Logger != nil {
		p.deps.Logger.Infof("skipped %d bad entries", bad)
	}

	if head {
		added = reversed(added)
	}
	return added, nil
}

// EstimateWait roughly estimates the time until the queue reaches position
// (1-based). current is the currently playing entry (nil when stopped) and
// progress its elapsed playback. A zero duration is valid data; an unknown
// one fails with [shared.ErrInsufficientData].
func (p *Playlist) EstimateWait(position int, current Entry, progress time.Duration) (time.Duration, error) {
	p.mu.Lock()
	before := make([]Entry, 0, position-1)
	for i := 0; i < position-1 && i < len(p.entries); i++ {
		before = append(before, p.entries[i])
	}
	p.mu.Unlock()

	var estimate time.Duration
	for _, e := range before {
		d, ok := e.Duration()
		if !ok {
			return 0, fmt.Errorf("%w: no duration data", shared.ErrInsufficientData)
		}
		estimate += d
	}

	if current != nil {
		d, ok := current.Duration()
		if !ok {
			return 0, fmt.Errorf("%w: no duration data in current entry", shared.ErrInsufficientData)
		}
		estimate += d - progress
	}

	return estimate, nil
}

// CountFor counts queued entries whose requester identity matches authorID.
func (p *Playlist) CountFor(authorID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, e := range p.entries {
		if e.Meta().AuthorID == authorID {
			count++
		}
	}
	return count
}

// Restore appends already-constructed entries without publishing events or
// prefetching. Used by the serialization bridge when rehydrating a queue.
func (p *Playlist) Restore(entries ...Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entries...)
}

// insert places the entry, announces it, and eagerly requests readiness
// when it became the queue head.
func (p *Playlist) insert(e Entry, head bool) int {
	p.mu.Lock()
	if head {
		p.entries = append([]Entry{e}, p.entries...)
	} else {
		p.entries = append(p.entries, e)
	}
	position := len(p.entries)
	if head {
		position = 1
	}
	prefetch := p.entries[0] == e
	p.mu.Unlock()

	if p.deps.Bus != nil {
		p.deps.Bus.Publish(events.EntryAddedEvent{
			Session:  p.deps.Session,
			Title:    e.Title(),
			Locator:  e.Locator(),
			Position: position,
			AuthorID: e.Meta().AuthorID,
		})
	}

	if prefetch {
		e.Ready()
	}
	return position
}

// addDuration maps an extraction result's duration for a single add: a
// missing or zero probed duration is treated as unknown and probed from
// the artifact later.
func addDuration(info *extract.Result) *time.Duration {
	d, ok := info.DurationValue()
	if !ok || d == 0 {
		return nil
	}
	return &d
}

// importDuration maps a listing item's duration for bulk import: missing
// values default to a zero placeholder rather than unknown.
func importDuration(item *extract.Result) *time.Duration {
	d, _ := item.DurationValue()
	return &d
}

// importLocator picks the locator field for a listing item; the generic
// extractor's listings only carry direct URLs.
func importLocator(listing, item *extract.Result) string {
	if listing.Extractor == "generic" {
		return item.URL
	}
	if item.WebpageURL != "" {
		return item.WebpageURL
	}
	return item.URL
}

// shallowLocator derives a full media locator from an unprocessed listing
// item.
func shallowLocator(listing, item *extract.Result) string {
	if item.URL != "" {
		return item.URL
	}
	if base, _, found := strings.Cut(listing.WebpageURL, "playlist?list="); found && item.ID != "" {
		return base + "watch?v=" + item.ID
	}
	return item.ID
}

func reversed[T any](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
