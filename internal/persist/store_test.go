package persist

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tu "github.com/desertthunder/spool/internal/testing"
)

func TestStore(t *testing.T) {
	t.Run("loading an absent session yields nil", func(t *testing.T) {
		s := NewStore(t.TempDir(), nil)

		rec, err := s.Load("default")
		if err != nil {
			t.Fatal(err)
		}
		if rec != nil {
			t.Errorf("expected nil record, got %+v", rec)
		}
	})

	t.Run("save then load round trips", func(t *testing.T) {
		s := NewStore(t.TempDir(), nil)

		rec := &QueueRecord{Version: 1, Entries: []EntryRecord{{
			Kind: KindURL, Version: 1, URL: "u", Title: "t",
		}}}
		if err := s.Save("default", rec); err != nil {
			t.Fatal(err)
		}
		tu.AssertFileExists(t, s.QueuePath("default"))

		loaded, err := s.Load("default")
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Version != 1 || len(loaded.Entries) != 1 || loaded.Entries[0].Title != "t" {
			t.Errorf("loaded = %+v", loaded)
		}
	})

	t.Run("save leaves no temp file behind", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore(dir, nil)

		if err := s.Save("default", &QueueRecord{Version: 1}); err != nil {
			t.Fatal(err)
		}

		names, err := os.ReadDir(filepath.Join(dir, "default"))
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range names {
			if strings.HasSuffix(name.Name(), ".tmp") {
				t.Errorf("stray temp file %s", name.Name())
			}
		}
	})

	t.Run("concurrent saves do not clobber each other", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore(dir, nil)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Save("default", &QueueRecord{Version: 1, Entries: []EntryRecord{{
					Kind: KindURL, Version: 1, URL: "u", Title: "t",
				}}}); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		loaded, err := s.Load("default")
		if err != nil {
			t.Fatal(err)
		}
		if loaded == nil || len(loaded.Entries) != 1 {
			t.Errorf("loaded = %+v", loaded)
		}

		names, err := os.ReadDir(filepath.Join(dir, "default"))
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range names {
			if strings.HasSuffix(name.Name(), ".tmp") {
				t.Errorf("stray temp file %s", name.Name())
			}
		}
	})

	t.Run("corrupt queue file is an error, not a panic", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore(dir, nil)

		if err := os.MkdirAll(filepath.Join(dir, "default"), 0755); err != nil {
			t.Fatal(err)
		}
		tu.MustWriteFile(t, s.QueuePath("default"), "{not json")

		if _, err := s.Load("default"); err == nil {
			t.Error("expected a parse error")
		}
	})

	t.Run("now playing marker is rewritten", func(t *testing.T) {
		s := NewStore(t.TempDir(), nil)

		if err := s.WriteNowPlaying("default", "first title"); err != nil {
			t.Fatal(err)
		}
		if err := s.WriteNowPlaying("default", "second title"); err != nil {
			t.Fatal(err)
		}

		if got := tu.MustReadFile(t, s.NowPlayingPath("default")); got != "second title" {
			t.Errorf("marker = %q", got)
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		s := NewStore(t.TempDir(), nil)

		if err := s.Save("alpha", &QueueRecord{Version: 1}); err != nil {
			t.Fatal(err)
		}

		rec, err := s.Load("beta")
		if err != nil {
			t.Fatal(err)
		}
		if rec != nil {
			t.Error("expected no record for a different session")
		}
	})
}
