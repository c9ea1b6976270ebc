package extract

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spool/internal/shared"
)

// stubExtractor is a test double driven by a per-call function.
type stubExtractor struct {
	fn       func(locator string, opts Options) (*Result, error)
	filename string

	mu    sync.Mutex
	calls []Options
}

func (s *stubExtractor) Extract(ctx context.Context, locator string, opts Options) (*Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, opts)
	s.mu.Unlock()
	return s.fn(locator, opts)
}

func (s *stubExtractor) PrepareFilename(r *Result) string {
	return s.filename
}

func TestDispatcher(t *testing.T) {
	t.Run("wraps extractor errors", func(t *testing.T) {
		ext := &stubExtractor{fn: func(string, Options) (*Result, error) {
			return nil, errors.New("no formats found")
		}}
		d := NewDispatcher(ext, 2, 0, nil)

		_, err := d.Dispatch(context.Background(), "https://example.com/v", Options{})
		if !errors.Is(err, shared.ErrExtraction) {
			t.Fatalf("expected ErrExtraction, got %v", err)
		}
	})

	t.Run("nil result is an error", func(t *testing.T) {
		ext := &stubExtractor{fn: func(string, Options) (*Result, error) {
			return nil, nil
		}}
		d := NewDispatcher(ext, 2, 0, nil)

		_, err := d.Dispatch(context.Background(), "https://example.com/v", Options{})
		if !errors.Is(err, shared.ErrExtraction) {
			t.Fatalf("expected ErrExtraction for nil result, got %v", err)
		}
	})

	t.Run("safe dispatch forces tolerant mode", func(t *testing.T) {
		ext := &stubExtractor{fn: func(_ string, opts Options) (*Result, error) {
			return &Result{ID: "x"}, nil
		}}
		d := NewDispatcher(ext, 2, 0, nil)

		if _, err := d.SafeDispatch(context.Background(), "u", Options{}); err != nil {
			t.Fatal(err)
		}
		if len(ext.calls) != 1 || !ext.calls[0].Tolerant {
			t.Errorf("expected a single tolerant call, got %+v", ext.calls)
		}
	})

	t.Run("hook receives the error and tolerant retry recovers", func(t *testing.T) {
		ext := &stubExtractor{fn: func(_ string, opts Options) (*Result, error) {
			if opts.Tolerant {
				return &Result{ID: "recovered"}, nil
			}
			return nil, errors.New("strict failure")
		}}
		d := NewDispatcher(ext, 2, 0, nil)

		var hooked error
		res, err := d.DispatchWithHook(context.Background(), "u", Options{}, HookOptions{
			Hook:          func(e error) { hooked = e },
			RetryTolerant: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.ID != "recovered" {
			t.Errorf("expected tolerant retry result, got %+v", res)
		}
		if hooked == nil {
			t.Error("expected hook to receive the strict error")
		}
	})

	t.Run("without retry the strict error propagates", func(t *testing.T) {
		ext := &stubExtractor{fn: func(string, Options) (*Result, error) {
			return nil, errors.New("strict failure")
		}}
		d := NewDispatcher(ext, 2, 0, nil)

		hooked := false
		_, err := d.DispatchWithHook(context.Background(), "u", Options{}, HookOptions{
			Hook: func(error) { hooked = true },
		})
		if !errors.Is(err, shared.ErrExtraction) {
			t.Fatalf("expected ErrExtraction, got %v", err)
		}
		if !hooked {
			t.Error("expected hook to run")
		}
	})

	t.Run("pool bounds concurrent extractions", func(t *testing.T) {
		var active, peak int64
		release := make(chan struct{})
		ext := &stubExtractor{fn: func(string, Options) (*Result, error) {
			n := atomic.AddInt64(&active, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt64(&active, -1)
			return &Result{}, nil
		}}
		d := NewDispatcher(ext, 2, 0, nil)

		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Dispatch(context.Background(), "u", Options{})
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		if p := atomic.LoadInt64(&peak); p > 2 {
			t.Errorf("expected at most 2 concurrent extractions, saw %d", p)
		}
	})

	t.Run("canceled context abandons waiting for a slot", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		ext := &stubExtractor{fn: func(string, Options) (*Result, error) {
			<-release
			return &Result{}, nil
		}}
		d := NewDispatcher(ext, 1, 0, nil)

		go d.Dispatch(context.Background(), "blocker", Options{})
		time.Sleep(20 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := d.Dispatch(ctx, "waiter", Options{})
		if !errors.Is(err, shared.ErrExtraction) {
			t.Fatalf("expected wrapped cancellation, got %v", err)
		}
	})
}

func TestResult(t *testing.T) {
	t.Run("playlist detection", func(t *testing.T) {
		if !(&Result{Type: "playlist"}).IsPlaylist() {
			t.Error("typed playlist not detected")
		}
		if !(&Result{Entries: []*Result{{}}}).IsPlaylist() {
			t.Error("listing with entries not detected")
		}
		if (&Result{Type: "video"}).IsPlaylist() {
			t.Error("single item misdetected as playlist")
		}
	})

	t.Run("source locator prefers webpage url", func(t *testing.T) {
		r := &Result{URL: "https://cdn.example.com/raw", WebpageURL: "https://example.com/watch"}
		if got := r.SourceLocator(); got != "https://example.com/watch" {
			t.Errorf("SourceLocator() = %q", got)
		}
		r.WebpageURL = ""
		if got := r.SourceLocator(); got != "https://cdn.example.com/raw" {
			t.Errorf("SourceLocator() = %q", got)
		}
	})

	t.Run("generic and dropbox extractors need probing", func(t *testing.T) {
		for _, name := range []string{"generic", "dropbox", "Dropbox"} {
			if !(&Result{Extractor: name}).Generic() {
				t.Errorf("expected %q to be generic", name)
			}
		}
		if (&Result{Extractor: "youtube"}).Generic() {
			t.Error("youtube should not be generic")
		}
	})

	t.Run("live requires an explicit flag", func(t *testing.T) {
		live := true
		if !(&Result{IsLive: &live}).Live() {
			t.Error("explicit live flag not honored")
		}
		if (&Result{}).Live() {
			t.Error("absent flag should not read as live")
		}
	})
}
