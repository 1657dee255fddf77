package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

// Sentinel errors
var (
	ErrNoSources     = errors.New("request has no sources")
	ErrInvalidVolume = errors.New("volume must be in (0,1]")
)

// Request describes one playback intent. Sources are tried in declaration
// order. The registry copies the slice, so later edits by the caller have no
// effect on a request in flight.
type Request struct {
	Sources []*source.Source

	// Volume in (0,1]; zero means unset
	Volume float64

	OnSuccess func(sound.Sound)
	OnFailure func(error)
}

func (r Request) validate() error {
	if len(r.Sources) == 0 {
		return ErrNoSources
	}
	if r.Volume < 0 || r.Volume > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidVolume, r.Volume)
	}
	return nil
}

// RequestError reports that every driver failed to serve a request
type RequestError struct {
	ID       string
	Failures []error
}

func (e *RequestError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("request %s: no drivers", e.ID)
	}
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("request %s: all drivers failed: %s", e.ID, strings.Join(msgs, "; "))
}

func (e *RequestError) Unwrap() []error {
	return e.Failures
}

// outcome delivers exactly one terminal callback for a request
type outcome struct {
	req    Request
	span   trace.Span
	logger *slog.Logger
	once   sync.Once
}

func (o *outcome) succeed(s sound.Sound) {
	o.once.Do(func() {
		o.logger.Debug("Sound opened")
		o.span.SetStatus(codes.Ok, "")
		o.span.End()
		if o.req.OnSuccess != nil {
			o.req.OnSuccess(s)
		}
	})
}

func (o *outcome) fail(err error) {
	o.once.Do(func() {
		o.logger.Debug("Sound failed to open", "error", err)
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.span.End()
		if o.req.OnFailure != nil {
			o.req.OnFailure(err)
		}
	})
}
