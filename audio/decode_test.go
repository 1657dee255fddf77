package audio

import (
	"testing"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1nch8g/ample/audio/audiotest"
	"github.com/d1nch8g/ample/source"
)

func TestDecode_WAV(t *testing.T) {
	data := audiotest.WAV(audiotest.Tone(100), 22050, 2)

	s, format, err := Decode(source.WAV, data)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, beep.SampleRate(22050), format.SampleRate)
	assert.Equal(t, 2, format.NumChannels)
	assert.Equal(t, 100, s.Len())
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode(source.Unknown, []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, _, err = Decode(source.WAV, []byte("definitely not riff"))
	assert.Error(t, err)
}

func TestDecodeMP3PCM_Garbage(t *testing.T) {
	_, err := DecodeMP3PCM([]byte("not an mp3 stream"))
	assert.Error(t, err)
}

func TestPCM_Streamer(t *testing.T) {
	p := PCM{Samples: []int16{16384, -16384, 0, 32767}, SampleRate: 8000}
	assert.Equal(t, 2, p.Frames())

	buf := make([][2]float64, 4)
	n, ok := p.Streamer().Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.5, buf[0][0], 1e-9)
	assert.InDelta(t, -0.5, buf[0][1], 1e-9)
	assert.InDelta(t, 0, buf[1][0], 1e-9)
}

func TestPCM_Scaled(t *testing.T) {
	p := PCM{Samples: []int16{1000, -1000}}
	assert.Equal(t, []int16{500, -500}, p.Scaled(0.5))
	assert.Equal(t, p.Samples, p.Scaled(0))
	assert.Equal(t, p.Samples, p.Scaled(1))
}

func TestGain(t *testing.T) {
	p := PCM{Samples: []int16{16384, 16384}}
	s := Gain(p.Streamer(), 0.5)

	buf := make([][2]float64, 1)
	n, _ := s.Stream(buf)
	require.Equal(t, 1, n)
	assert.InDelta(t, 0.25, buf[0][0], 1e-9)

	plain := p.Streamer()
	assert.Same(t, plain, Gain(plain, 1))
}

func TestDecode_SeekableFormats(t *testing.T) {
	tests := []struct {
		name string
		typ  source.Type
		data []byte
		rate beep.SampleRate
	}{
		{"mp3", source.MP3, audiotest.MP3(8), 44100},
		{"ogg", source.Ogg, audiotest.Ogg(40), 44100},
		{"wav", source.WAV, audiotest.WAV(audiotest.Tone(100), 8000, 2), 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, format, err := Decode(tt.typ, tt.data)
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, tt.rate, format.SampleRate)
			assert.Positive(t, s.Len())

			buf := make([][2]float64, 64)
			n, ok := s.Stream(buf)
			assert.True(t, ok)
			assert.Positive(t, n)

			require.NoError(t, s.Seek(0))
			assert.Equal(t, 0, s.Position())
		})
	}
}

func TestDecodeMP3PCM(t *testing.T) {
	pcm, err := DecodeMP3PCM(audiotest.MP3(4))
	require.NoError(t, err)

	assert.Equal(t, 44100, pcm.SampleRate)
	assert.Positive(t, pcm.Frames())
	for _, s := range pcm.Samples {
		require.Zero(t, s)
	}
}
