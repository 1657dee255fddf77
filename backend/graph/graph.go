// Package graph decodes sources fully into memory and builds a fresh
// playback graph on every Play.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gopxl/beep"

	"github.com/d1nch8g/ample/audio"
	"github.com/d1nch8g/ample/driver"
	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

// Backend is the decode-and-buffer-graph backend
type Backend struct {
	output audio.Output
	logger *slog.Logger
}

var _ driver.Backend = (*Backend)(nil)

// New creates a graph backend rendering to output
func New(output audio.Output, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{output: output, logger: logger}
}

func (b *Backend) Name() string {
	return "graph"
}

func (b *Backend) Supports(t source.Type) bool {
	return t == source.MP3 || t == source.WAV
}

// Init opens the output that every graph renders into
func (b *Backend) Init(ctx context.Context, done func(error)) {
	go func() {
		if err := b.output.Open(); err != nil {
			done(fmt.Errorf("failed to create audio context: %w", err))
			return
		}
		done(nil)
	}()
}

func (b *Backend) Attempt(ctx context.Context, src *source.Source, opts driver.Options, done func(sound.Sound, error)) {
	go func() {
		data, err := src.Fetch(ctx)
		if err != nil {
			done(nil, err)
			return
		}

		buf, err := decode(src.Type(), data)
		if err != nil {
			done(nil, err)
			return
		}
		if buf.Len() == 0 {
			done(nil, audio.ErrEmptyAudio)
			return
		}

		done(&graphSound{output: b.output, buffer: buf, volume: opts.Volume}, nil)
	}()
}

// decode renders the whole source into an in-memory buffer
func decode(typ source.Type, data []byte) (*beep.Buffer, error) {
	switch typ {
	case source.MP3:
		pcm, err := audio.DecodeMP3PCM(data)
		if err != nil {
			return nil, err
		}
		buf := beep.NewBuffer(pcm.Format())
		buf.Append(pcm.Streamer())
		return buf, nil
	default:
		stream, format, err := audio.Decode(typ, data)
		if err != nil {
			return nil, err
		}
		defer stream.Close()

		buf := beep.NewBuffer(format)
		buf.Append(stream)
		if err := stream.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", typ, err)
		}
		return buf, nil
	}
}

type graphSound struct {
	output audio.Output
	buffer *beep.Buffer
	volume float64

	mu      sync.Mutex
	current *beep.Ctrl
	closed  bool
}

// Play builds source → gain → resampler → output
func (s *graphSound) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	var node beep.Streamer = s.buffer.Streamer(0, s.buffer.Len())
	node = audio.Gain(node, s.volume)
	if from, to := s.buffer.Format().SampleRate, s.output.SampleRate(); from != to {
		node = beep.Resample(4, from, to, node)
	}

	s.current = &beep.Ctrl{Streamer: node}
	s.output.Play(s.current)
}

func (s *graphSound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silenceLocked()
}

// Close silences the current graph; later Play calls do nothing
func (s *graphSound) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silenceLocked()
	s.closed = true
	return nil
}

func (s *graphSound) silenceLocked() {
	if s.current == nil {
		return
	}
	s.output.Lock()
	s.current.Streamer = nil
	s.output.Unlock()
	s.current = nil
}
