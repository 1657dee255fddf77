package driver

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

// Options carries the per-request settings a backend needs
type Options struct {
	// Volume in (0,1]; zero means unset
	Volume float64
}

// Backend is one playback mechanism. Implementations report every outcome
// through the done callback, exactly once, and may do so from any goroutine.
type Backend interface {
	// Name identifies the backend in logs and configuration
	Name() string

	// Supports reports whether the backend could ever play t. It is checked
	// before any fetch.
	Supports(t source.Type) bool

	// Init performs one-time setup. Exactly-once is enforced by the Gate.
	Init(ctx context.Context, done func(error))

	// Attempt realizes src into a Sound. ctx covers the attempt only, not
	// the lifetime of the Sound. A failed attempt must release anything it
	// created.
	Attempt(ctx context.Context, src *source.Source, opts Options, done func(sound.Sound, error))
}

// Driver is the process-lifetime pairing of a backend with its init gate,
// shared by every request
type Driver struct {
	backend        Backend
	gate           *Gate
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Driver
type Option func(*config)

type config struct {
	initTimeout    time.Duration
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// WithInitTimeout fails init if the backend has not called back in time
func WithInitTimeout(d time.Duration) Option {
	return func(c *config) { c.initTimeout = d }
}

// WithAttemptTimeout fails a source attempt if the backend has not called back in time
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *config) { c.attemptTimeout = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New creates a Driver around b
func New(b Backend, opts ...Option) *Driver {
	c := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}

	d := &Driver{
		backend:        b,
		attemptTimeout: c.attemptTimeout,
		logger:         c.logger.With("driver", b.Name()),
	}
	// Init outlives the request that happened to trigger it; the gate owns
	// its context
	d.gate = NewGate(func(ctx context.Context, done func(error)) {
		d.logger.Debug("Initializing driver")
		b.Init(ctx, done)
	}, c.initTimeout)
	return d
}

// Name returns the backend name
func (d *Driver) Name() string {
	return d.backend.Name()
}

// State returns the init state of the driver
func (d *Driver) State() State {
	return d.gate.State()
}

// Open routes sources through the init gate and then the source cascade.
// done receives a Sound, an *InitError, an *ExhaustedError, or the context
// error if ctx ended first.
func (d *Driver) Open(ctx context.Context, sources []*source.Source, opts Options, done func(sound.Sound, error)) {
	d.gate.Submit(func(err error) {
		if err != nil {
			d.logger.Debug("Driver unavailable", "error", err)
			done(nil, &InitError{Driver: d.Name(), Err: err})
			return
		}
		c := &cascade{
			driver:  d,
			ctx:     ctx,
			sources: sources,
			opts:    opts,
			done:    done,
		}
		c.next()
	})
}

// Close releases the backend if it holds host resources
func (d *Driver) Close() error {
	if c, ok := d.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
