package source

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// Type identifies the encoding of a Source
type Type int

const (
	Unknown Type = iota
	MP3
	Ogg
	WAV
)

// String returns the short name of the type
func (t Type) String() string {
	switch t {
	case MP3:
		return "mp3"
	case Ogg:
		return "ogg"
	case WAV:
		return "wav"
	default:
		return "unknown"
	}
}

// MIME returns the capability tag a backend matches against
func (t Type) MIME() string {
	switch t {
	case MP3:
		return "audio/mpeg"
	case Ogg:
		return "audio/ogg; codecs=vorbis"
	case WAV:
		return "audio/wav"
	default:
		return ""
	}
}

// Detect infers a Type from the extension of a location.
// Speech locations (tts:) always synthesize WAV.
func Detect(location string) Type {
	p := location
	if u, err := url.Parse(location); err == nil {
		if u.Scheme == "tts" {
			return WAV
		}
		if u.Path != "" {
			p = u.Path
		}
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return MP3
	case ".ogg", ".oga":
		return Ogg
	case ".wav", ".wave":
		return WAV
	default:
		return Unknown
	}
}

// Sniff infers a Type from the leading bytes of an encoded clip
func Sniff(data []byte) Type {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is("audio/mpeg"):
			return MP3
		case m.Is("audio/ogg"), m.Is("application/ogg"):
			return Ogg
		case m.Is("audio/wav"), m.Is("audio/x-wav"):
			return WAV
		}
	}
	return Unknown
}

// Fetcher resolves a location into raw encoded bytes
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

type fetchState int

const (
	notFetched fetchState = iota
	fetching
	resolved
)

// Source is one encoded candidate for a sound. Its bytes are fetched at most
// once and shared by every driver and request holding the same Source.
type Source struct {
	typ      Type
	location string
	fetcher  Fetcher

	mu    sync.Mutex
	state fetchState
	done  chan struct{}
	data  []byte
	err   error
}

// New creates a Source of the given type
func New(typ Type, location string, fetcher Fetcher) *Source {
	return &Source{
		typ:      typ,
		location: location,
		fetcher:  fetcher,
		done:     make(chan struct{}),
	}
}

// Type returns the encoding of the source. A source created as Unknown
// takes the sniffed type of its bytes once fetched.
func (s *Source) Type() Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typ
}

// Resolve returns the type of the source, fetching and sniffing its bytes
// when the location did not reveal it
func (s *Source) Resolve(ctx context.Context) (Type, error) {
	if t := s.Type(); t != Unknown {
		return t, nil
	}
	if _, err := s.Fetch(ctx); err != nil {
		return Unknown, err
	}
	return s.Type(), nil
}

// Location returns the opaque location of the source
func (s *Source) Location() string {
	return s.location
}

// MIME returns the derived capability tag
func (s *Source) MIME() string {
	return s.Type().MIME()
}

func (s *Source) String() string {
	return s.Type().String() + ":" + s.location
}

// Fetch returns the source bytes, fetching them on first use. Concurrent
// callers share the single in-flight fetch. The outcome, error included, is
// cached for the lifetime of the Source.
func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	switch s.state {
	case resolved:
		data, err := s.data, s.err
		s.mu.Unlock()
		return data, err
	case notFetched:
		s.state = fetching
		s.mu.Unlock()
		// The fetch is shared, so one caller's cancellation must not fail the rest.
		go s.resolve(context.WithoutCancel(ctx))
	default:
		s.mu.Unlock()
	}

	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.data, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetched reports whether the fetch has resolved
func (s *Source) Fetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == resolved
}

func (s *Source) resolve(ctx context.Context) {
	var (
		data []byte
		err  error
	)
	if s.fetcher == nil {
		err = ErrNoFetcher
	} else {
		data, err = s.fetcher.Fetch(ctx, s.location)
	}

	s.mu.Lock()
	s.data, s.err = data, err
	if err == nil && s.typ == Unknown {
		s.typ = Sniff(data)
	}
	s.state = resolved
	s.mu.Unlock()
	close(s.done)
}
