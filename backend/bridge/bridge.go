// Package bridge plays MP3 sources through the external PortAudio library.
// The library's methods become usable only after a polling handshake.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/d1nch8g/ample/audio"
	"github.com/d1nch8g/ample/driver"
	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

// Sentinel errors
var (
	ErrHandshake = errors.New("plugin handshake did not complete")
	ErrNotReady  = errors.New("plugin bridge not initialized")
)

// Library is the external plugin the bridge drives
type Library interface {
	Initialize() error
	DefaultOutputDevice() (*portaudio.DeviceInfo, error)
	Terminate() error
}

type portaudioLibrary struct{}

func (portaudioLibrary) Initialize() error {
	return portaudio.Initialize()
}

func (portaudioLibrary) DefaultOutputDevice() (*portaudio.DeviceInfo, error) {
	return portaudio.DefaultOutputDevice()
}

func (portaudioLibrary) Terminate() error {
	return portaudio.Terminate()
}

// Config holds the handshake and stream settings
type Config struct {
	PollInterval    time.Duration
	PollAttempts    int
	FramesPerBuffer int
}

func GetDefaultConfig() Config {
	return Config{
		PollInterval:    100 * time.Millisecond,
		PollAttempts:    50,
		FramesPerBuffer: 1024,
	}
}

// Backend is the plugin bridge backend
type Backend struct {
	config Config
	lib    Library
	open   sound.StreamOpener
	logger *slog.Logger

	mu     sync.Mutex
	ready  bool
	nextID int
	sounds map[int]*sound.PortaudioPlayer
}

var _ driver.Backend = (*Backend)(nil)

// New creates a bridge backend. A nil lib uses the PortAudio library and a
// nil opener uses its default output stream.
func New(config Config, lib Library, open sound.StreamOpener, logger *slog.Logger) *Backend {
	if lib == nil {
		lib = portaudioLibrary{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		config: config,
		lib:    lib,
		open:   open,
		logger: logger,
		sounds: make(map[int]*sound.PortaudioPlayer),
	}
}

func (b *Backend) Name() string {
	return "bridge"
}

// Supports accepts MP3 only
func (b *Backend) Supports(t source.Type) bool {
	return t == source.MP3
}

// Init loads the library, then polls until its output device answers
func (b *Backend) Init(ctx context.Context, done func(error)) {
	go func() {
		if err := b.lib.Initialize(); err != nil {
			done(fmt.Errorf("failed to load portaudio: %w", err))
			return
		}

		ticker := time.NewTicker(b.config.PollInterval)
		defer ticker.Stop()

		var lastErr error
		for attempt := 0; attempt < b.config.PollAttempts; attempt++ {
			_, err := b.lib.DefaultOutputDevice()
			if err == nil {
				if !b.markReady(ctx) {
					_ = b.lib.Terminate()
					done(context.Cause(ctx))
					return
				}
				done(nil)
				return
			}
			lastErr = err

			select {
			case <-ctx.Done():
				_ = b.lib.Terminate()
				done(context.Cause(ctx))
				return
			case <-ticker.C:
			}
		}

		_ = b.lib.Terminate()
		done(fmt.Errorf("%w after %d polls: %v", ErrHandshake, b.config.PollAttempts, lastErr))
	}()
}

// markReady opens the bridge unless init was abandoned
func (b *Backend) markReady(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	b.ready = true
	return true
}

func (b *Backend) Attempt(ctx context.Context, src *source.Source, opts driver.Options, done func(sound.Sound, error)) {
	b.mu.Lock()
	ready := b.ready
	b.mu.Unlock()
	if !ready {
		done(nil, ErrNotReady)
		return
	}

	go func() {
		data, err := src.Fetch(ctx)
		if err != nil {
			done(nil, err)
			return
		}

		pcm, err := audio.DecodeMP3PCM(data)
		if err != nil {
			done(nil, err)
			return
		}

		config := sound.PlayerConfig{
			SampleRate:      float64(pcm.SampleRate),
			FramesPerBuffer: b.config.FramesPerBuffer,
			OutputChannels:  2,
		}
		player := sound.NewPortaudioPlayer(config, pcm.Scaled(opts.Volume), b.open, b.logger)

		id := b.register(player)
		b.logger.Debug("Bridge sound loaded", "sound_id", id, "source", src.String())
		done(&bridgeSound{PortaudioPlayer: player, backend: b, id: id}, nil)
	}()
}

func (b *Backend) register(p *sound.PortaudioPlayer) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.sounds[b.nextID] = p
	return b.nextID
}

func (b *Backend) release(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sounds, id)
}

// Open returns the number of sounds not yet closed
func (b *Backend) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sounds)
}

// Close stops every sound and unloads the library
func (b *Backend) Close() error {
	b.mu.Lock()
	sounds := b.sounds
	b.sounds = make(map[int]*sound.PortaudioPlayer)
	ready := b.ready
	b.ready = false
	b.mu.Unlock()

	for _, p := range sounds {
		_ = p.Close()
	}
	if !ready {
		return nil
	}
	return b.lib.Terminate()
}

type bridgeSound struct {
	*sound.PortaudioPlayer
	backend *Backend
	id      int
}

func (s *bridgeSound) Close() error {
	s.backend.release(s.id)
	return s.PortaudioPlayer.Close()
}
