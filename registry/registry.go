// Package registry tries a request against an ordered list of drivers until
// one of them produces a Sound.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/d1nch8g/ample/driver"
	"github.com/d1nch8g/ample/sound"
)

// Registry holds the drivers in priority order. The order is fixed at
// construction.
type Registry struct {
	drivers []*driver.Driver
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithTracer sets the tracer used for request and driver spans
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// New creates a registry trying drivers in the given order
func New(drivers []*driver.Driver, opts ...Option) *Registry {
	r := &Registry{
		drivers: slices.Clone(drivers),
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/d1nch8g/ample/registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Drivers returns the drivers in priority order
func (r *Registry) Drivers() []*driver.Driver {
	return slices.Clone(r.drivers)
}

// Open tries req against each driver in order and reports the outcome through
// exactly one of req.OnSuccess or req.OnFailure. No driver is tried twice.
func (r *Registry) Open(ctx context.Context, req Request) {
	id := uuid.NewString()
	logger := r.logger.With("request_id", id)

	ctx, span := r.tracer.Start(ctx, "registry.Open", trace.WithAttributes(
		attribute.String("request.id", id),
		attribute.Int("request.sources", len(req.Sources)),
	))
	o := &outcome{req: req, span: span, logger: logger}

	if err := req.validate(); err != nil {
		o.fail(err)
		return
	}

	var (
		sources  = slices.Clone(req.Sources)
		opts     = driver.Options{Volume: req.Volume}
		failures []error
		try      func(i int)
	)
	try = func(i int) {
		if i >= len(r.drivers) {
			o.fail(&RequestError{ID: id, Failures: failures})
			return
		}

		d := r.drivers[i]
		dctx, dspan := r.tracer.Start(ctx, "driver.Open", trace.WithAttributes(
			attribute.String("driver.name", d.Name()),
		))
		d.Open(dctx, sources, opts, func(s sound.Sound, err error) {
			if err == nil {
				dspan.End()
				o.succeed(s)
				return
			}

			dspan.RecordError(err)
			dspan.End()
			logger.Debug("Driver could not serve request", "driver", d.Name(), "error", err)
			failures = append(failures, err)

			if ctxErr := ctx.Err(); ctxErr != nil {
				o.fail(&RequestError{ID: id, Failures: failures})
				return
			}
			try(i + 1)
		})
	}
	try(0)
}

// Close releases every driver
func (r *Registry) Close() error {
	var errs []error
	for _, d := range r.drivers {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
