package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1nch8g/ample/audio/audiotest"
	"github.com/d1nch8g/ample/config"
	"github.com/d1nch8g/ample/driver"
	"github.com/d1nch8g/ample/registry"
	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

// echoBackend plays any supported source whose bytes it can fetch
type echoBackend struct {
	name      string
	supported source.Type
	closed    atomic.Bool
}

func (b *echoBackend) Name() string                { return b.name }
func (b *echoBackend) Supports(t source.Type) bool { return t == b.supported }

func (b *echoBackend) Init(ctx context.Context, done func(error)) {
	go done(nil)
}

func (b *echoBackend) Attempt(ctx context.Context, src *source.Source, opts driver.Options, done func(sound.Sound, error)) {
	go func() {
		data, err := src.Fetch(ctx)
		if err != nil {
			done(nil, err)
			return
		}
		done(echoSound{driver: b.name, data: string(data)}, nil)
	}()
}

func (b *echoBackend) Close() error {
	b.closed.Store(true)
	return nil
}

type echoSound struct {
	driver string
	data   string
}

func (echoSound) Play()        {}
func (echoSound) Stop()        {}
func (echoSound) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		SampleRate:   44100,
		BufferSize:   100 * time.Millisecond,
		PollInterval: time.Millisecond,
		PollAttempts: 1,
		FetchTimeout: time.Second,
	}
}

func trusting(v bool) registry.Probe {
	return registry.ProbeFunc(func() bool { return v })
}

func TestNew_OrderFromProbe(t *testing.T) {
	e, err := New(testConfig(), WithProbe(trusting(true)))
	require.NoError(t, err)
	assert.Equal(t, []string{"graph", "native", "bridge"}, e.Drivers())

	e, err = New(testConfig(), WithProbe(trusting(false)))
	require.NoError(t, err)
	assert.Equal(t, []string{"graph", "bridge", "native"}, e.Drivers())
}

func TestNew_OrderFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DriverOrder = "native, graph"

	e, err := New(cfg, WithProbe(trusting(false)))
	require.NoError(t, err)
	assert.Equal(t, []string{"native", "graph"}, e.Drivers())

	cfg.DriverOrder = "flash"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestEngine_OpenSoundFallsBackAcrossDrivers(t *testing.T) {
	dir := t.TempDir()
	ogg := filepath.Join(dir, "beep.ogg")
	require.NoError(t, os.WriteFile(ogg, []byte("ogg bytes"), 0o644))

	mp3Backend := &echoBackend{name: "graph", supported: source.MP3}
	oggBackend := &echoBackend{name: "native", supported: source.Ogg}

	cfg := testConfig()
	cfg.DriverOrder = "graph,native"
	e, err := New(cfg,
		WithFactory(registry.Graph, func() driver.Backend { return mp3Backend }),
		WithFactory(registry.Native, func() driver.Backend { return oggBackend }),
	)
	require.NoError(t, err)

	got := make(chan sound.Sound, 1)
	e.OpenSound(context.Background(), Options{
		Locations: []string{filepath.Join(dir, "missing.mp3"), ogg},
		OnSuccess: func(s sound.Sound) { got <- s },
		OnFailure: func(err error) { t.Errorf("unexpected failure: %v", err) },
	})

	select {
	case s := <-got:
		assert.Equal(t, echoSound{driver: "native", data: "ogg bytes"}, s)
	case <-time.After(2 * time.Second):
		t.Fatal("sound never opened")
	}

	require.NoError(t, e.Close())
	assert.True(t, mp3Backend.closed.Load())
	assert.True(t, oggBackend.closed.Load())
}

func TestEngine_OpenSoundFailure(t *testing.T) {
	cfg := testConfig()
	cfg.DriverOrder = "graph"
	e, err := New(cfg, WithFactory(registry.Graph, func() driver.Backend {
		return &echoBackend{name: "graph", supported: source.MP3}
	}))
	require.NoError(t, err)

	failed := make(chan error, 1)
	e.OpenSound(context.Background(), Options{
		MP3Path:   filepath.Join(t.TempDir(), "missing.mp3"),
		OnSuccess: func(s sound.Sound) { t.Errorf("unexpected success") },
		OnFailure: func(err error) { failed <- err },
	})

	select {
	case err := <-failed:
		var reqErr *registry.RequestError
		assert.ErrorAs(t, err, &reqErr)
		assert.ErrorIs(t, err, os.ErrNotExist)
	case <-time.After(2 * time.Second):
		t.Fatal("request never failed")
	}
}

func TestEngine_OpenSoundWithoutExtension(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip")
	data := audiotest.WAV(audiotest.Tone(4), 8000, 2)
	require.NoError(t, os.WriteFile(clip, data, 0o644))

	cfg := testConfig()
	cfg.DriverOrder = "graph"
	e, err := New(cfg, WithFactory(registry.Graph, func() driver.Backend {
		return &echoBackend{name: "graph", supported: source.WAV}
	}))
	require.NoError(t, err)

	got := make(chan sound.Sound, 1)
	e.OpenSound(context.Background(), Options{
		Locations: []string{clip},
		OnSuccess: func(s sound.Sound) { got <- s },
		OnFailure: func(err error) { t.Errorf("unexpected failure: %v", err) },
	})

	select {
	case s := <-got:
		assert.Equal(t, echoSound{driver: "graph", data: string(data)}, s)
	case <-time.After(2 * time.Second):
		t.Fatal("sound never opened")
	}
}

func TestEngine_SourcesFromPaths(t *testing.T) {
	e, err := New(testConfig(), WithProbe(trusting(true)))
	require.NoError(t, err)

	sources := e.Sources(Options{MP3Path: "a.mp3", OggPath: "a.ogg"})
	require.Len(t, sources, 2)
	assert.Equal(t, source.MP3, sources[0].Type())
	assert.Equal(t, source.Ogg, sources[1].Type())

	sources = e.Sources(Options{Locations: []string{"x.wav"}, MP3Path: "ignored.mp3"})
	require.Len(t, sources, 1)
	assert.Equal(t, source.WAV, sources[0].Type())

	assert.Empty(t, e.Sources(Options{}))
}
