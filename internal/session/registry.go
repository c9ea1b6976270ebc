// package session owns the mapping from session identifiers to live
// playlists, their persisted state, and playback pause flags. Structural
// changes to a session's queue serialize on that session's lock, so
// competing callers never interleave half-applied operations.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/events"
	"github.com/desertthunder/spool/internal/persist"
	"github.com/desertthunder/spool/internal/queue"
)

// Session is one live play session: a playlist plus its pause flag and the
// lock serializing structural operations against it.
type Session struct {
	ID       string
	Playlist *queue.Playlist

	mu     sync.Mutex
	paused bool
}

// Lock acquires the session's structural lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's structural lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Paused reports whether playback is paused.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Registry hands out sessions by id, loading persisted queues on first open
// and saving them back after state-changing operations.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store  *persist.Store
	ctx    persist.Context
	logger *log.Logger
}

// NewRegistry creates a Registry backed by store. Runtime handles for
// decoding come from ctx; its event bus, when present, drives saves for
// entries added by background readiness work.
func NewRegistry(store *persist.Store, ctx persist.Context, logger *log.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		ctx:      ctx,
		logger:   logger,
	}
	if ctx.Bus != nil {
		ctx.Bus.SubscribeAsync(events.EntryAdded, r.onEntryAdded)
		ctx.Bus.SubscribeAsync(events.QueueCleared, r.onQueueCleared)
	}
	return r
}

// Open returns the live session for id, loading its persisted queue the
// first time. Records that cannot be reconstructed are dropped with a
// warning rather than failing the whole session.
func (r *Registry) Open(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	rec, err := r.store.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	p, dropped, err := persist.Decode(r.ctx, id, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if dropped > 0 && r.logger != nil {
		r.logger.Warnf("session %s: dropped %d unreadable queue entries", id, dropped)
	}

	s := &Session{ID: id, Playlist: p}
	r.sessions[id] = s
	return s, nil
}

// Save snapshots the session's queue to disk.
func (r *Registry) Save(s *Session) error {
	return r.store.Save(s.ID, persist.Encode(s.Playlist))
}

// Advance pops the session's head entry, waits for it to become ready,
// records it as now playing, and saves the shrunk queue. It returns the
// ready entry, or (nil, nil) when the queue is empty.
func (r *Registry) Advance(ctx context.Context, s *Session) (queue.Entry, error) {
	s.Lock()
	future, ok := s.Playlist.Advance()
	s.Unlock()
	if !ok {
		if err := r.Save(s); err != nil {
			return nil, err
		}
		return nil, nil
	}

	entry, err := future.Wait(ctx)
	if err != nil {
		// The entry already left the queue; persist that before reporting.
		if saveErr := r.Save(s); saveErr != nil && r.logger != nil {
			r.logger.Warnf("session %s: could not save queue: %v", s.ID, saveErr)
		}
		return nil, err
	}

	if err := r.store.WriteNowPlaying(s.ID, entry.Title()); err != nil && r.logger != nil {
		r.logger.Warnf("session %s: could not write now-playing marker: %v", s.ID, err)
	}
	if err := r.Save(s); err != nil {
		return nil, err
	}

	if r.ctx.Bus != nil {
		r.ctx.Bus.Publish(events.PlaybackStateChangedEvent{
			Session: s.ID,
			State:   "playing",
			Title:   entry.Title(),
		})
	}
	return entry, nil
}

// SetPaused flips the session's pause flag and announces the change.
func (r *Registry) SetPaused(s *Session, paused bool) {
	s.mu.Lock()
	changed := s.paused != paused
	s.paused = paused
	s.mu.Unlock()

	if changed && r.ctx.Bus != nil {
		state := "resumed"
		if paused {
			state = "paused"
		}
		r.ctx.Bus.Publish(events.PlaybackStateChangedEvent{Session: s.ID, State: state})
	}
}

func (r *Registry) onEntryAdded(ev events.Event) {
	added, ok := ev.(events.EntryAddedEvent)
	if !ok {
		return
	}
	r.saveIfOpen(added.Session)
}

func (r *Registry) onQueueCleared(ev events.Event) {
	cleared, ok := ev.(events.QueueClearedEvent)
	if !ok {
		return
	}
	r.saveIfOpen(cleared.Session)
}

// saveIfOpen persists a session already held by the registry. Events for
// sessions this registry never opened are someone else's to handle.
func (r *Registry) saveIfOpen(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := r.Save(s); err != nil && r.logger != nil {
		r.logger.Warnf("session %s: could not save queue: %v", id, err)
	}
}
