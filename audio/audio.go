package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Output defines the host mixer that backends schedule streamers on
type Output interface {
	// Open initializes the output; repeated calls return the first result
	Open() error

	// SampleRate is the rate every played streamer must be at
	SampleRate() beep.SampleRate

	// Play schedules s for playback
	Play(s beep.Streamer)

	// Lock and Unlock guard mutation of streamers that are playing
	Lock()
	Unlock()
}

// Speaker is the process-wide beep speaker. The speaker can be initialized
// only once, so every backend shares one Speaker.
type Speaker struct {
	sampleRate beep.SampleRate
	buffer     time.Duration

	once   sync.Once
	err    error
	opened bool
}

var _ Output = (*Speaker)(nil)

// NewSpeaker creates a speaker output with the given rate and buffer length
func NewSpeaker(sampleRate int, buffer time.Duration) *Speaker {
	return &Speaker{
		sampleRate: beep.SampleRate(sampleRate),
		buffer:     buffer,
	}
}

func (s *Speaker) Open() error {
	s.once.Do(func() {
		s.err = speaker.Init(s.sampleRate, s.sampleRate.N(s.buffer))
		s.opened = s.err == nil
	})
	return s.err
}

func (s *Speaker) SampleRate() beep.SampleRate {
	return s.sampleRate
}

func (s *Speaker) Play(st beep.Streamer) {
	speaker.Play(st)
}

func (s *Speaker) Lock() {
	speaker.Lock()
}

func (s *Speaker) Unlock() {
	speaker.Unlock()
}

// Close clears pending streamers if the speaker was opened
func (s *Speaker) Close() {
	s.once.Do(func() {})
	if s.opened {
		speaker.Clear()
	}
}
