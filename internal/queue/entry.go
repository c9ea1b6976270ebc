package queue

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/events"
	"github.com/desertthunder/spool/internal/extract"
	"github.com/desertthunder/spool/internal/media"
	"github.com/desertthunder/spool/internal/shared"
)

// Meta carries caller-supplied metadata attached to an entry, typically the
// requester and origin channel identities from the chat-platform boundary.
type Meta struct {
	AuthorID  int64
	ChannelID int64
}

// Deps bundles the runtime handles an entry or playlist needs. None of
// these are persistable; the serialization bridge re-injects them on
// decode.
type Deps struct {
	// Session identifies the owning playback session in published events.
	Session    string
	Client     *http.Client
	Config     *shared.Config
	Dispatcher *extract.Dispatcher
	Bus        *events.Bus
	Prober     media.Prober
	Logger     *log.Logger
}

// Entry represents one queued media item and its readiness state machine.
// Identity is by allocation: two entries with the same locator are distinct.
type Entry interface {
	Title() string
	Locator() string
	// Duration returns the entry's duration. ok is false while it is
	// unknown; a zero duration with ok true is valid data.
	Duration() (time.Duration, bool)
	// Filename is the local artifact path (URL entries) or the resolved
	// destination (stream entries). Empty until materialized.
	Filename() string
	Meta() Meta
	// IsDownloaded reports readiness: a handle exists and no download is
	// in progress.
	IsDownloaded() bool
	// Ready returns a future resolving when the entry is prepared,
	// starting the download routine if one is not already in flight.
	Ready() *Future
}

// entryState holds the download lifecycle shared by both entry variants:
// the materialized handle, the in-flight flag, and the pending waiter set.
type entryState struct {
	mu          sync.Mutex
	filename    string
	downloading bool
	waiters     []*Future
}

func (s *entryState) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename
}

func (s *entryState) setFilename(fn string) {
	s.mu.Lock()
	s.filename = fn
	s.mu.Unlock()
}

func (s *entryState) IsDownloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.downloading && s.filename != ""
}

// ready registers a waiter and starts the download routine unless one is
// already in flight. Resolves immediately when the entry is already
// prepared.
func (s *entryState) ready(self Entry, start func()) *Future {
	s.mu.Lock()
	if s.filename != "" && !s.downloading {
		s.mu.Unlock()
		return resolvedFuture(self)
	}

	f := newFuture()
	s.waiters = append(s.waiters, f)
	begin := !s.downloading
	if begin {
		s.downloading = true
	}
	s.mu.Unlock()

	if begin {
		go start()
	}
	return f
}

// finish clears the in-flight flag and resolves every pending waiter with
// the terminal outcome. Runs on every download exit path.
func (s *entryState) finish(self Entry, err error) {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.downloading = false
	s.mu.Unlock()

	for _, f := range waiters {
		if err != nil {
			f.resolve(nil, err)
		} else {
			f.resolve(self, nil)
		}
	}
}

func publishReady(deps Deps, e Entry) {
	if deps.Bus == nil {
		return
	}
	d, _ := e.Duration()
	deps.Bus.Publish(events.EntryReadyEvent{
		Session:  deps.Session,
		Title:    e.Title(),
		Locator:  e.Locator(),
		Filename: e.Filename(),
		Duration: d,
	})
}

func publishFailed(deps Deps, e Entry, err error) {
	if deps.Bus == nil {
		return
	}
	deps.Bus.Publish(events.EntryFailedEvent{
		Session: deps.Session,
		Title:   e.Title(),
		Locator: e.Locator(),
		Err:     err,
	})
}
