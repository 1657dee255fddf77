package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/d1nch8g/ample/config"
	"github.com/d1nch8g/ample/engine"
	"github.com/d1nch8g/ample/sound"
)

var (
	volume   float64
	order    string
	duration time.Duration
	tracing  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ample",
		Short:        "Play a sound with whichever audio driver works on this host",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&order, "order", "", "Comma separated driver order (overrides AMPLE_DRIVER_ORDER)")
	cmd.AddCommand(newPlayCmd(), newDriversCmd())

	return cmd
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <location>...",
		Short: "Play the first location any driver can open",
		Long: "Locations are tried in order: local paths, file://, http(s):// URLs, " +
			"or tts:?text=... when speech credentials are configured.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), args)
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 1, "Playback volume in (0,1]")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "How long to play before stopping")
	cmd.Flags().BoolVar(&tracing, "trace", false, "Print request spans to stdout")

	return cmd
}

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "Print drivers in the order they would be tried",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			fmt.Println(strings.Join(e.Drivers(), "\n"))
			return nil
		},
	}
}

func setup() (*engine.Engine, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if order != "" {
		cfg.DriverOrder = order
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	e, err := engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return e, logger, nil
}

func setupTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func runPlay(ctx context.Context, locations []string) error {
	if tracing {
		shutdown, err := setupTracing()
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("Failed to flush traces", "error", err)
			}
		}()
	}

	e, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Warn("Failed to close engine", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	opened := make(chan sound.Sound, 1)
	failed := make(chan error, 1)
	e.OpenSound(ctx, engine.Options{
		Locations: locations,
		Volume:    volume,
		OnSuccess: func(s sound.Sound) { opened <- s },
		OnFailure: func(err error) { failed <- err },
	})

	var s sound.Sound
	select {
	case s = <-opened:
	case err := <-failed:
		return fmt.Errorf("no driver could play the sound: %w", err)
	}
	defer s.Close()

	logger.Info("Playing", "duration", duration)
	s.Play()

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		fmt.Println("\nStopping...")
	}
	s.Stop()

	return nil
}
