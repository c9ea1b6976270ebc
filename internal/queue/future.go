package queue

import (
	"context"
	"sync"
)

// Future is a readiness future: a deferred result handle that resolves once
// an entry's artifact or stream destination is available, or fails if
// preparation failed. A future may be abandoned without affecting the
// download it is waiting on.
type Future struct {
	once  sync.Once
	done  chan struct{}
	entry Entry
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture(e Entry) *Future {
	f := newFuture()
	f.resolve(e, nil)
	return f
}

func (f *Future) resolve(e Entry, err error) {
	f.once.Do(func() {
		f.entry = e
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) (Entry, error) {
	select {
	case <-f.done:
		return f.entry, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done reports whether the future has resolved without blocking.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
