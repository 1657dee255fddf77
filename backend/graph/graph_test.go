package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1nch8g/ample/audio/audiotest"
	"github.com/d1nch8g/ample/driver"
	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

type fakeOutput struct {
	mu      sync.Mutex
	rate    beep.SampleRate
	openErr error
	played  []beep.Streamer
}

func (o *fakeOutput) Open() error                 { return o.openErr }
func (o *fakeOutput) SampleRate() beep.SampleRate { return o.rate }
func (o *fakeOutput) Lock()                       { o.mu.Lock() }
func (o *fakeOutput) Unlock()                     { o.mu.Unlock() }

func (o *fakeOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.played = append(o.played, s)
}

type bytesFetcher []byte

func (f bytesFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f, nil
}

func attempt(t *testing.T, b *Backend, src *source.Source, opts driver.Options) (sound.Sound, error) {
	t.Helper()
	type result struct {
		s   sound.Sound
		err error
	}
	ch := make(chan result, 1)
	b.Attempt(context.Background(), src, opts, func(s sound.Sound, err error) {
		ch <- result{s, err}
	})
	select {
	case r := <-ch:
		return r.s, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never called back")
		return nil, nil
	}
}

func TestBackend_InitFailure(t *testing.T) {
	errc := make(chan error, 1)
	New(&fakeOutput{openErr: errors.New("no context")}, nil).Init(context.Background(), func(err error) { errc <- err })
	assert.Error(t, <-errc)
}

func TestBackend_Supports(t *testing.T) {
	b := New(&fakeOutput{}, nil)
	assert.True(t, b.Supports(source.MP3))
	assert.True(t, b.Supports(source.WAV))
	assert.False(t, b.Supports(source.Ogg))
}

func TestBackend_EachPlayBuildsFreshGraph(t *testing.T) {
	out := &fakeOutput{rate: 8000}
	b := New(out, nil)
	data := audiotest.WAV(audiotest.Tone(32), 8000, 2)

	s, err := attempt(t, b, source.New(source.WAV, "a.wav", bytesFetcher(data)), driver.Options{})
	require.NoError(t, err)

	s.Play()
	s.Play()
	require.Len(t, out.played, 2)
	assert.NotSame(t, out.played[0], out.played[1])

	// Each graph streams the whole clip from the start at unity gain
	for _, g := range out.played {
		buf := make([][2]float64, 64)
		n, _ := g.Stream(buf)
		assert.Equal(t, 32, n)
		assert.InDelta(t, 0.25, buf[0][0], 1e-3)
	}
}

func TestBackend_VolumeAddsGainNode(t *testing.T) {
	out := &fakeOutput{rate: 8000}
	b := New(out, nil)
	data := audiotest.WAV(audiotest.Tone(8), 8000, 2)

	s, err := attempt(t, b, source.New(source.WAV, "a.wav", bytesFetcher(data)), driver.Options{Volume: 0.5})
	require.NoError(t, err)

	s.Play()
	buf := make([][2]float64, 8)
	n, _ := out.played[0].Stream(buf)
	require.Equal(t, 8, n)
	assert.InDelta(t, 0.125, buf[0][1], 1e-3)
}

func TestBackend_StopSilencesCurrentGraph(t *testing.T) {
	out := &fakeOutput{rate: 8000}
	b := New(out, nil)
	data := audiotest.WAV(audiotest.Tone(8), 8000, 2)

	s, err := attempt(t, b, source.New(source.WAV, "a.wav", bytesFetcher(data)), driver.Options{})
	require.NoError(t, err)

	s.Play()
	s.Stop()
	_, ok := out.played[0].Stream(make([][2]float64, 4))
	assert.False(t, ok)
	assert.NoError(t, s.Close())
}

func TestBackend_ResamplesToOutputRate(t *testing.T) {
	out := &fakeOutput{rate: 16000}
	b := New(out, nil)
	data := audiotest.WAV(audiotest.Tone(100), 8000, 2)

	s, err := attempt(t, b, source.New(source.WAV, "a.wav", bytesFetcher(data)), driver.Options{})
	require.NoError(t, err)

	s.Play()
	total := 0
	buf := make([][2]float64, 512)
	for {
		n, ok := out.played[0].Stream(buf)
		total += n
		if !ok || n == 0 {
			break
		}
	}
	// Twice the frames at twice the rate, give or take the resampler window
	assert.Greater(t, total, 150)
	assert.Less(t, total, 220)
}

func TestBackend_DecodeFailures(t *testing.T) {
	b := New(&fakeOutput{rate: 8000}, nil)

	_, err := attempt(t, b, source.New(source.MP3, "a.mp3", bytesFetcher("not mp3")), driver.Options{})
	assert.Error(t, err)

	_, err = attempt(t, b, source.New(source.WAV, "a.wav", bytesFetcher("not wav")), driver.Options{})
	assert.Error(t, err)
}

func TestBackend_PlaysMP3(t *testing.T) {
	out := &fakeOutput{rate: 44100}
	b := New(out, nil)

	s, err := attempt(t, b, source.New(source.MP3, "a.mp3", bytesFetcher(audiotest.MP3(4))), driver.Options{})
	require.NoError(t, err)

	s.Play()
	require.Len(t, out.played, 1)
	n, ok := out.played[0].Stream(make([][2]float64, 256))
	assert.True(t, ok)
	assert.Equal(t, 256, n)
}

func TestBackend_PlayAfterCloseDoesNothing(t *testing.T) {
	out := &fakeOutput{rate: 8000}
	b := New(out, nil)
	data := audiotest.WAV(audiotest.Tone(8), 8000, 2)

	s, err := attempt(t, b, source.New(source.WAV, "a.wav", bytesFetcher(data)), driver.Options{})
	require.NoError(t, err)

	s.Play()
	require.NoError(t, s.Close())
	_, ok := out.played[0].Stream(make([][2]float64, 4))
	assert.False(t, ok)

	s.Play()
	assert.Len(t, out.played, 1)
	assert.NoError(t, s.Close())
}
