package tts

import "context"

// Synthesizer turns text into encoded audio
type Synthesizer interface {
	// Synthesize sends WAV chunks to chunks in order and closes it before
	// returning
	Synthesize(ctx context.Context, text string, opts Options, chunks chan<- []byte) error
	Close() error
}

// Options tunes one synthesis request. Zero values leave the service
// defaults in place.
type Options struct {
	Voice  string
	Model  string
	Speed  float64
	Volume float64

	// Normalize asks the service for LUFS loudness normalization
	Normalize bool
}
