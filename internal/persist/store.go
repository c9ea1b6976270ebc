package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/shared"
)

// Store reads and writes per-session state files under a base directory:
// one subdirectory per session holding the persisted queue and the
// now-playing marker.
type Store struct {
	dir    string
	logger *log.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger *log.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// QueuePath returns the persisted queue file path for a session.
func (s *Store) QueuePath(session string) string {
	return filepath.Join(s.dir, session, "queue.json")
}

// NowPlayingPath returns the now-playing marker path for a session.
func (s *Store) NowPlayingPath(session string) string {
	return filepath.Join(s.dir, session, "current.txt")
}

// Load reads a session's persisted queue record. A missing file is not an
// error; it yields a nil record (an empty queue).
func (s *Store) Load(session string) (*QueueRecord, error) {
	data, err := os.ReadFile(s.QueuePath(session))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}

	var rec QueueRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse queue file: %w", err)
	}
	return &rec, nil
}

// Save writes a session's queue record atomically (temp file + rename).
// Temp names are unique per write so saves racing from command paths and
// async event handlers never clobber each other's staging file.
func (s *Store) Save(session string, rec *QueueRecord) error {
	path := s.QueuePath(session)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal queue record: %w", err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, shared.GenerateID())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace queue file: %w", err)
	}

	if s.logger != nil {
		s.logger.Debugf("saved queue for session %s (%d entries)", session, len(rec.Entries))
	}
	return nil
}

// WriteNowPlaying rewrites the session's now-playing marker with the title
// of the entry that just began playback.
func (s *Store) WriteNowPlaying(session, title string) error {
	path := s.NowPlayingPath(session)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(title), 0644); err != nil {
		return fmt.Errorf("failed to write now-playing marker: %w", err)
	}
	return nil
}
