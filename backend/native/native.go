// Package native plays sources through streaming decoders kept open as
// elements on the host mixer.
package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep"

	"github.com/d1nch8g/ample/audio"
	"github.com/d1nch8g/ample/driver"
	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

// ErrNoSupport is returned once the host has shown it cannot play elements
var ErrNoSupport = errors.New("native playback not supported on this host")

// Backend is the native element backend
type Backend struct {
	output audio.Output
	logger *slog.Logger

	lacksSupport atomic.Bool
}

var _ driver.Backend = (*Backend)(nil)

// New creates a native backend playing on output
func New(output audio.Output, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{output: output, logger: logger}
}

func (b *Backend) Name() string {
	return "native"
}

func (b *Backend) Supports(t source.Type) bool {
	switch t {
	case source.MP3, source.Ogg, source.WAV:
		return true
	default:
		return false
	}
}

func (b *Backend) Init(ctx context.Context, done func(error)) {
	go func() {
		if err := b.output.Open(); err != nil {
			done(fmt.Errorf("failed to open output: %w", err))
			return
		}
		done(nil)
	}()
}

func (b *Backend) Attempt(ctx context.Context, src *source.Source, opts driver.Options, done func(sound.Sound, error)) {
	// Once confirmed, don't bother repeating the exercise
	if b.lacksSupport.Load() {
		done(nil, ErrNoSupport)
		return
	}
	if b.output.SampleRate() <= 0 {
		b.lacksSupport.Store(true)
		done(nil, ErrNoSupport)
		return
	}

	go func() {
		data, err := src.Fetch(ctx)
		if err != nil {
			done(nil, err)
			return
		}

		stream, format, err := audio.Decode(src.Type(), data)
		if err != nil {
			done(nil, err)
			return
		}
		if stream.Len() == 0 {
			stream.Close()
			done(nil, audio.ErrEmptyAudio)
			return
		}

		done(newElement(b.output, b.logger, stream, format, opts.Volume), nil)
	}()
}

// element is one open decoder scheduled on the output on every Play
type element struct {
	output audio.Output
	logger *slog.Logger
	stream beep.StreamSeekCloser
	format beep.Format
	volume float64

	mu     sync.Mutex
	ctrl   *beep.Ctrl
	closed bool
}

func newElement(output audio.Output, logger *slog.Logger, stream beep.StreamSeekCloser, format beep.Format, volume float64) *element {
	return &element{
		output: output,
		logger: logger,
		stream: stream,
		format: format,
		volume: volume,
	}
}

func (e *element) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.output.Lock()
	if e.ctrl != nil {
		e.ctrl.Streamer = nil
	}
	err := e.stream.Seek(0)
	e.output.Unlock()
	if err != nil {
		e.logger.Warn("Failed to rewind element", "error", err)
		return
	}

	var s beep.Streamer = e.stream
	if rate := e.output.SampleRate(); rate != e.format.SampleRate {
		s = beep.Resample(4, e.format.SampleRate, rate, s)
	}
	e.ctrl = &beep.Ctrl{Streamer: audio.Gain(s, e.volume)}
	e.output.Play(e.ctrl)
}

// Stop detaches the element from the mixer; the decoder stays open for the
// next Play
func (e *element) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return
	}
	e.output.Lock()
	e.ctrl.Streamer = nil
	e.output.Unlock()
	e.ctrl = nil
}

func (e *element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.output.Lock()
	if e.ctrl != nil {
		e.ctrl.Streamer = nil
	}
	e.output.Unlock()
	return e.stream.Close()
}
