package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/d1nch8g/ample/source"
)

// Sentinel errors
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyAudio        = errors.New("decoded audio is empty")
)

// Decode opens a streaming decoder over data. The returned streamer must be
// closed by the caller.
func Decode(typ source.Type, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := readSeekCloser{bytes.NewReader(data)}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch typ {
	case source.MP3:
		s, format, err = mp3.Decode(rc)
	case source.Ogg:
		s, format, err = vorbis.Decode(rc)
	case source.WAV:
		s, format, err = wav.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, typ)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", typ, err)
	}
	return s, format, nil
}

// readSeekCloser keeps the seeker visible so decoders can measure length
// and rewind
type readSeekCloser struct {
	io.ReadSeeker
}

func (readSeekCloser) Close() error {
	return nil
}

// PCM is interleaved signed 16-bit stereo audio
type PCM struct {
	Samples    []int16
	SampleRate int
}

// Frames returns the number of stereo frames
func (p PCM) Frames() int {
	return len(p.Samples) / 2
}

// Scaled returns a copy of the samples multiplied by volume.
// A volume of 0 or 1 returns the samples unchanged.
func (p PCM) Scaled(volume float64) []int16 {
	if volume <= 0 || volume >= 1 {
		return p.Samples
	}
	out := make([]int16, len(p.Samples))
	for i, s := range p.Samples {
		out[i] = int16(float64(s) * volume)
	}
	return out
}

// Streamer exposes the PCM as a beep streamer
func (p PCM) Streamer() beep.Streamer {
	return &pcmStreamer{samples: p.Samples}
}

// Format returns the beep format of the PCM
func (p PCM) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(p.SampleRate),
		NumChannels: 2,
		Precision:   2,
	}
}

// DecodeMP3PCM fully decodes an MP3 into PCM
func DecodeMP3PCM(data []byte) (PCM, error) {
	d, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("failed to decode mp3: %w", err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return PCM{}, fmt.Errorf("failed to read mp3 frames: %w", err)
	}
	if len(raw) < 4 {
		return PCM{}, ErrEmptyAudio
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		// Convert little-endian bytes to int16
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}

	return PCM{Samples: samples, SampleRate: d.SampleRate()}, nil
}

// Gain routes s through a gain stage when a volume below 1 is requested
func Gain(s beep.Streamer, volume float64) beep.Streamer {
	if volume <= 0 || volume >= 1 {
		return s
	}
	return &effects.Gain{Streamer: s, Gain: volume - 1}
}

type pcmStreamer struct {
	samples []int16
	pos     int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) && p.pos+1 < len(p.samples) {
		samples[n][0] = float64(p.samples[p.pos]) / 32768
		samples[n][1] = float64(p.samples[p.pos+1]) / 32768
		p.pos += 2
		n++
	}
	return n, n > 0
}

func (p *pcmStreamer) Err() error {
	return nil
}
