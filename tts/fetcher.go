package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/d1nch8g/ample/source"
)

var ErrNoText = errors.New("speech location has no text")

// Fetcher resolves tts: locations by synthesizing speech. The text comes
// from the opaque part (tts:Hello) or the text parameter
// (tts:?text=Hello&voice=jane&speed=1.2).
type Fetcher struct {
	synth    Synthesizer
	defaults Options
}

var _ source.Fetcher = (*Fetcher)(nil)

func NewFetcher(synth Synthesizer, defaults Options) *Fetcher {
	return &Fetcher{synth: synth, defaults: defaults}
}

func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	text, options, err := f.parse(location)
	if err != nil {
		return nil, err
	}

	chunks := make(chan []byte, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- f.synth.Synthesize(ctx, text, options, chunks)
	}()

	var buf bytes.Buffer
	for chunk := range chunks {
		buf.Write(chunk)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Fetcher) parse(location string) (string, Options, error) {
	options := f.defaults

	u, err := url.Parse(location)
	if err != nil {
		return "", options, fmt.Errorf("invalid speech location: %w", err)
	}
	q := u.Query()

	text := q.Get("text")
	if text == "" && u.Opaque != "" {
		if text, err = url.PathUnescape(u.Opaque); err != nil {
			return "", options, fmt.Errorf("invalid speech text: %w", err)
		}
	}
	if text == "" {
		return "", options, ErrNoText
	}

	if v := q.Get("voice"); v != "" {
		options.Voice = v
	}
	if v := q.Get("model"); v != "" {
		options.Model = v
	}
	if v := q.Get("speed"); v != "" {
		if options.Speed, err = strconv.ParseFloat(v, 64); err != nil {
			return "", options, fmt.Errorf("invalid speed %q: %w", v, err)
		}
	}
	return text, options, nil
}
