package sound

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Stream is the subset of a PortAudio output stream the player drives
type Stream interface {
	Start() error
	Write() error
	Stop() error
	Close() error
}

// StreamOpener opens an output stream that plays whatever is in buf on Write
type StreamOpener func(config PlayerConfig, buf []int16) (Stream, error)

// PlayerConfig describes the output stream of a PortaudioPlayer
type PlayerConfig struct {
	SampleRate      float64
	FramesPerBuffer int
	OutputChannels  int
}

func GetDefaultConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate:      44100,
		FramesPerBuffer: 1024,
		OutputChannels:  2,
	}
}

// OpenDefaultStream opens the host's default PortAudio output stream
func OpenDefaultStream(config PlayerConfig, buf []int16) (Stream, error) {
	return portaudio.OpenDefaultStream(
		0,
		config.OutputChannels,
		config.SampleRate,
		config.FramesPerBuffer,
		buf,
	)
}

// PortaudioPlayer plays an interleaved int16 clip through its own output stream
type PortaudioPlayer struct {
	config PlayerConfig
	open   StreamOpener
	clip   []int16
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

var _ Sound = (*PortaudioPlayer)(nil)

// NewPortaudioPlayer creates a player for clip. A nil opener uses OpenDefaultStream.
func NewPortaudioPlayer(config PlayerConfig, clip []int16, open StreamOpener, logger *slog.Logger) *PortaudioPlayer {
	if open == nil {
		open = OpenDefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortaudioPlayer{
		config: config,
		open:   open,
		clip:   clip,
		logger: logger,
	}
}

// Play restarts the clip from the beginning
func (p *PortaudioPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	go func() {
		defer close(done)
		if err := p.playback(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("Playback failed", "error", err)
		}
	}()
}

// Stop halts the clip and waits for the stream to be released
func (p *PortaudioPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Close stops playback; the player cannot be played afterwards
func (p *PortaudioPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}

func (p *PortaudioPlayer) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

func (p *PortaudioPlayer) playback(ctx context.Context) error {
	buffer := make([]int16, p.config.FramesPerBuffer*p.config.OutputChannels)

	stream, err := p.open(p.config, buffer)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for offset := 0; offset < len(p.clip); offset += len(buffer) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Copy samples to buffer, zero-filling the tail of the last chunk
		n := copy(buffer, p.clip[offset:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}

		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}
