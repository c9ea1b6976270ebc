// package events implements a small typed publish/subscribe bus.
//
// Components announce lifecycle transitions on the bus without hard-coupling
// to consumers. The event set is closed: every event is one of the variants
// defined here, each with a strongly-typed payload.
package events

import "time"

// EventType discriminates the closed set of event variants.
type EventType int

const (
	EntryAdded EventType = iota
	EntryReady
	EntryFailed
	QueueCleared
	PlaybackStateChanged
)

func (t EventType) String() string {
	switch t {
	case EntryAdded:
		return "entry_added"
	case EntryReady:
		return "entry_ready"
	case EntryFailed:
		return "entry_failed"
	case QueueCleared:
		return "queue_cleared"
	case PlaybackStateChanged:
		return "playback_state_changed"
	default:
		return ""
	}
}

// Event is implemented by every event variant.
type Event interface {
	Type() EventType
}

// EntryAddedEvent fires when an entry is accepted into a playlist.
type EntryAddedEvent struct {
	Session  string
	Title    string
	Locator  string
	Position int
	AuthorID int64
}

func (EntryAddedEvent) Type() EventType { return EntryAdded }

// EntryReadyEvent fires when an entry's download or stream resolution
// completes successfully.
type EntryReadyEvent struct {
	Session  string
	Title    string
	Locator  string
	Filename string
	Duration time.Duration
}

func (EntryReadyEvent) Type() EventType { return EntryReady }

// EntryFailedEvent fires when an entry's preparation fails. All pending
// readiness futures have already been resolved with Err.
type EntryFailedEvent struct {
	Session string
	Title   string
	Locator string
	Err     error
}

func (EntryFailedEvent) Type() EventType { return EntryFailed }

// QueueClearedEvent fires when a playlist is emptied.
type QueueClearedEvent struct {
	Session string
}

func (QueueClearedEvent) Type() EventType { return QueueCleared }

// PlaybackStateChangedEvent fires when the consumer reports a playback
// transition (started, paused, resumed, drained).
type PlaybackStateChangedEvent struct {
	Session string
	State   string
	Title   string
}

func (PlaybackStateChangedEvent) Type() EventType { return PlaybackStateChanged }
