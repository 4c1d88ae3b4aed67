package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/covenant/pkg/constraint"
	"mercator-hq/covenant/pkg/telemetry/metrics"
)

// ErrNotLoaded is returned by Check before the first successful load.
var ErrNotLoaded = errors.New("constraint files not loaded")

// ValidateFunc vets a file before it joins a Set, e.g. engine.Prepare.
type ValidateFunc func(file *constraint.File) error

// ReloaderOption customizes a Reloader.
type ReloaderOption func(*Reloader)

// WithValidator runs validate on every loaded file.
func WithValidator(validate ValidateFunc) ReloaderOption {
	return func(r *Reloader) { r.validate = validate }
}

// WithReloadMetrics counts reload attempts on collector.
func WithReloadMetrics(collector *metrics.Collector) ReloaderOption {
	return func(r *Reloader) { r.metrics = collector }
}

// OnReload registers a callback run after each successful swap.
func OnReload(fn func(*Set)) ReloaderOption {
	return func(r *Reloader) { r.listeners = append(r.listeners, fn) }
}

// Reloader holds the current Set and replaces it when the source changes.
// A failed reload keeps the previous Set in service.
type Reloader struct {
	source    Source
	validate  ValidateFunc
	logger    *slog.Logger
	metrics   *metrics.Collector
	listeners []func(*Set)

	current atomic.Pointer[Set]

	mu      sync.Mutex
	lastErr error
	lastAt  time.Time
}

// NewReloader creates a reloader over src. Nothing is loaded until Load.
func NewReloader(src Source, logger *slog.Logger, opts ...ReloaderOption) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reloader{
		source: src,
		logger: logger.With("component", "constraint.reloader", "source", src.Name()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load loads the source and swaps the new Set in. On any error, including
// a single bad file, the current Set stays.
func (r *Reloader) Load(ctx context.Context) (*Set, error) {
	start := time.Now()
	set, err := r.build(ctx)

	r.mu.Lock()
	r.lastErr = err
	r.lastAt = time.Now()
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordReload(err == nil)
	}

	if err != nil {
		attrs := []any{"error", err, "duration_ms", time.Since(start).Milliseconds()}
		if prev := r.current.Load(); prev != nil {
			attrs = append(attrs, "kept_version", prev.Version())
		}
		r.logger.Error("constraint reload failed", attrs...)
		return nil, err
	}

	prev := r.current.Swap(set)
	if prev != nil && prev.Version() == set.Version() {
		r.logger.Debug("constraint files unchanged", "version", set.Version())
	} else {
		r.logger.Info("constraint files loaded",
			"files", set.Len(),
			"constraints", set.Constraints(),
			"version", set.Version(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	for _, fn := range r.listeners {
		fn(set)
	}
	return set, nil
}

func (r *Reloader) build(ctx context.Context) (*Set, error) {
	files, err := r.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if r.validate != nil {
		errs := &constraint.ErrorList{}
		for _, f := range files {
			errs.Add(r.validate(f))
		}
		if err := errs.ToError(); err != nil {
			return nil, err
		}
	}
	return NewSet(files)
}

// Current returns the Set in service, or nil before the first load.
func (r *Reloader) Current() *Set {
	return r.current.Load()
}

// LastError returns the error of the latest load attempt.
func (r *Reloader) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Check is a readiness check: it fails until a Set is in service.
func (r *Reloader) Check(ctx context.Context) error {
	if r.current.Load() == nil {
		if err := r.LastError(); err != nil {
			return fmt.Errorf("%w: %v", ErrNotLoaded, err)
		}
		return ErrNotLoaded
	}
	return nil
}

// Watch reloads whenever the watched files change, until ctx is done.
// The source must have been loaded once already.
func (r *Reloader) Watch(ctx context.Context, cfg *WatcherConfig) error {
	if cfg == nil {
		cfg = DefaultWatcherConfig()
	}
	if fs, ok := r.source.(*FileSource); ok {
		if len(cfg.Paths) == 0 {
			cfg.Paths = fs.Paths()
		}
		if cfg.Matches == nil {
			cfg.Matches = fs.Loader().Matches
		}
	}

	w, err := NewWatcher(cfg, r.logger)
	if err != nil {
		return err
	}
	return w.Watch(ctx, func() {
		// Errors are logged and counted by Load.
		_, _ = r.Load(ctx)
	})
}

// Poll reloads every interval until ctx is done. It serves sources that
// cannot be watched, such as a GitSource.
func (r *Reloader) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("polling constraint source", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = r.Load(ctx)
		}
	}
}
