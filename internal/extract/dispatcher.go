package extract

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/shared"
	"golang.org/x/time/rate"
)

// ErrorHook receives errors from the strict extraction path.
type ErrorHook func(error)

// HookOptions control error routing for DispatchWithHook.
type HookOptions struct {
	Hook ErrorHook
	// Async schedules the hook on its own goroutine instead of the caller's.
	Async bool
	// RetryTolerant recomputes the call in tolerant mode after routing the
	// error, instead of failing immediately.
	RetryTolerant bool
}

// Dispatcher runs blocking extraction calls on a fixed-size worker pool so
// they never stall the caller's scheduling loop beyond pool capacity.
type Dispatcher struct {
	ext     Extractor
	slots   chan struct{}
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewDispatcher creates a Dispatcher with the given pool size. A
// ratePerSecond of 0 disables rate limiting. workers defaults to 2.
func NewDispatcher(ext Extractor, workers int, ratePerSecond float64, logger *log.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}

	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), workers)
	}

	return &Dispatcher{
		ext:     ext,
		slots:   make(chan struct{}, workers),
		limiter: limiter,
		logger:  logger,
	}
}

// Dispatch runs one extraction on the pool. Strict unless opts.Tolerant is
// set; errors are wrapped with [shared.ErrExtraction].
func (d *Dispatcher) Dispatch(ctx context.Context, locator string, opts Options) (*Result, error) {
	res, err := d.run(ctx, locator, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: could not extract information from %s: %v", shared.ErrExtraction, locator, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: could not extract information from %s", shared.ErrExtraction, locator)
	}
	return res, nil
}

// SafeDispatch runs one extraction in tolerant mode regardless of opts.
func (d *Dispatcher) SafeDispatch(ctx context.Context, locator string, opts Options) (*Result, error) {
	opts.Tolerant = true
	return d.Dispatch(ctx, locator, opts)
}

// DispatchWithHook runs a strict extraction; on error the hook (if any)
// receives it, and when RetryTolerant is set the call is recomputed in
// tolerant mode instead of failing.
func (d *Dispatcher) DispatchWithHook(ctx context.Context, locator string, opts Options, hook HookOptions) (*Result, error) {
	opts.Tolerant = false
	res, err := d.run(ctx, locator, opts)
	if err == nil && res != nil {
		return res, nil
	}
	if err == nil {
		err = fmt.Errorf("empty extraction result")
	}

	if hook.Hook != nil {
		if hook.Async {
			go hook.Hook(err)
		} else {
			hook.Hook(err)
		}
		if hook.RetryTolerant {
			return d.SafeDispatch(ctx, locator, opts)
		}
	}

	return nil, fmt.Errorf("%w: could not extract information from %s: %v", shared.ErrExtraction, locator, err)
}

// PrepareFilename exposes the underlying extractor's deterministic cache
// filename computation.
func (d *Dispatcher) PrepareFilename(r *Result) string {
	return d.ext.PrepareFilename(r)
}

func (d *Dispatcher) run(ctx context.Context, locator string, opts Options) (*Result, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-d.slots }()

	if d.logger != nil {
		d.logger.Debugf("extracting %s (download=%t process=%t tolerant=%t)",
			locator, opts.Download, opts.Process, opts.Tolerant)
	}
	return d.ext.Extract(ctx, locator, opts)
}
