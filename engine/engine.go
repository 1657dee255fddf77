package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/d1nch8g/ample/audio"
	"github.com/d1nch8g/ample/backend/bridge"
	"github.com/d1nch8g/ample/backend/graph"
	"github.com/d1nch8g/ample/backend/native"
	"github.com/d1nch8g/ample/config"
	"github.com/d1nch8g/ample/driver"
	"github.com/d1nch8g/ample/fetch"
	"github.com/d1nch8g/ample/registry"
	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
	"github.com/d1nch8g/ample/tts"
)

// Options describes one sound to open. Locations take precedence over the
// MP3Path/OggPath pair.
type Options struct {
	Locations []string
	MP3Path   string
	OggPath   string

	// Volume in (0,1]; zero means unset
	Volume float64

	OnSuccess func(sound.Sound)
	OnFailure func(error)
}

// Engine owns the driver singletons and the shared fetch stack
type Engine struct {
	registry *registry.Registry
	fetcher  source.Fetcher
	output   *audio.Speaker
	speech   tts.Synthesizer
	logger   *slog.Logger
}

type engineConfig struct {
	logger    *slog.Logger
	probe     registry.Probe
	factories map[string]registry.Factory
	synth     tts.Synthesizer
	regOpts   []registry.Option
}

// Option configures an Engine
type Option func(*engineConfig)

// WithLogger sets the logger shared by every component
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// WithProbe replaces the host probe used to order drivers
func WithProbe(p registry.Probe) Option {
	return func(c *engineConfig) { c.probe = p }
}

// WithFactory replaces or adds the backend constructor for a driver name
func WithFactory(name string, f registry.Factory) Option {
	return func(c *engineConfig) {
		if c.factories == nil {
			c.factories = make(map[string]registry.Factory)
		}
		c.factories[name] = f
	}
}

// WithSynthesizer sets the synthesizer behind tts: locations
func WithSynthesizer(s tts.Synthesizer) Option {
	return func(c *engineConfig) { c.synth = s }
}

// WithRegistryOptions passes options through to the registry
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(c *engineConfig) { c.regOpts = append(c.regOpts, opts...) }
}

// New builds the fetch stack, the backends and the registry once for the
// life of the process
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	c := engineConfig{
		logger: slog.Default(),
		probe:  registry.NewHostProbe(),
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.synth == nil && cfg.SpeechEnabled() {
		synth, err := tts.NewYandex(tts.YandexConfig{
			ApiKey:   cfg.ApiKey,
			IamToken: cfg.IamToken,
			FolderID: cfg.FolderID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create TTS client: %w", err)
		}
		c.synth = synth
	}

	e := &Engine{
		output: audio.NewSpeaker(cfg.SampleRate, cfg.BufferSize),
		speech: c.synth,
		logger: c.logger,
	}

	web := fetch.NewHTTP(cfg.FetchTimeout)
	mux := fetch.NewMux().
		Handle("http", web).
		Handle("https", web).
		Handle("file", fetch.File{}).
		Handle("", fetch.File{})
	if c.synth != nil {
		options := tts.DefaultOptions()
		options.Voice = cfg.Voice
		mux.Handle("tts", tts.NewFetcher(c.synth, options))
	}
	e.fetcher = fetch.NewShared(mux, cfg.CacheTTL)

	factories := map[string]registry.Factory{
		registry.Graph: func() driver.Backend {
			return graph.New(e.output, c.logger)
		},
		registry.Native: func() driver.Backend {
			return native.New(e.output, c.logger)
		},
		registry.Bridge: func() driver.Backend {
			bc := bridge.GetDefaultConfig()
			bc.PollInterval = cfg.PollInterval
			bc.PollAttempts = cfg.PollAttempts
			return bridge.New(bc, nil, nil, c.logger)
		},
	}
	for name, f := range c.factories {
		factories[name] = f
	}

	order := registry.ParseOrder(cfg.DriverOrder)
	if len(order) == 0 {
		order = registry.DefaultOrder(c.probe)
	}

	driverOpts := []driver.Option{
		driver.WithLogger(c.logger),
		driver.WithInitTimeout(cfg.InitTimeout),
		driver.WithAttemptTimeout(cfg.AttemptTimeout),
	}
	regOpts := append([]registry.Option{registry.WithLogger(c.logger)}, c.regOpts...)

	reg, err := registry.Build(order, factories, driverOpts, regOpts...)
	if err != nil {
		return nil, err
	}
	e.registry = reg

	c.logger.Debug("Engine ready", "drivers", order)
	return e, nil
}

// OpenSound resolves opts into sources and hands them to the registry. The
// outcome arrives through exactly one of opts.OnSuccess or opts.OnFailure.
func (e *Engine) OpenSound(ctx context.Context, opts Options) {
	e.registry.Open(ctx, registry.Request{
		Sources:   e.Sources(opts),
		Volume:    opts.Volume,
		OnSuccess: opts.OnSuccess,
		OnFailure: opts.OnFailure,
	})
}

// Sources builds the ordered candidates for opts
func (e *Engine) Sources(opts Options) []*source.Source {
	var sources []*source.Source
	if len(opts.Locations) > 0 {
		for _, l := range opts.Locations {
			sources = append(sources, source.New(source.Detect(l), l, e.fetcher))
		}
		return sources
	}

	if opts.MP3Path != "" {
		sources = append(sources, source.New(source.MP3, opts.MP3Path, e.fetcher))
	}
	if opts.OggPath != "" {
		sources = append(sources, source.New(source.Ogg, opts.OggPath, e.fetcher))
	}
	return sources
}

// Drivers returns driver names in priority order
func (e *Engine) Drivers() []string {
	drivers := e.registry.Drivers()
	names := make([]string, len(drivers))
	for i, d := range drivers {
		names[i] = d.Name()
	}
	return names
}

// Close releases every driver, the output and the speech client
func (e *Engine) Close() error {
	var errs []error

	if err := e.registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close drivers: %w", err))
	}
	e.output.Close()
	if e.speech != nil {
		if err := e.speech.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close TTS client: %w", err))
		}
	}

	return errors.Join(errs...)
}
