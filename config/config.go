package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Comma separated driver names; empty means decided by the host probe
	DriverOrder string

	InitTimeout    time.Duration
	AttemptTimeout time.Duration
	FetchTimeout   time.Duration
	CacheTTL       time.Duration

	SampleRate   int
	BufferSize   time.Duration
	PollInterval time.Duration
	PollAttempts int

	LogLevel slog.Level

	// Speech sources
	IamToken string
	ApiKey   string
	FolderID string
	Voice    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("driver_order", "")
	v.SetDefault("init_timeout", 10*time.Second)
	v.SetDefault("attempt_timeout", 30*time.Second)
	v.SetDefault("fetch_timeout", 20*time.Second)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("buffer_size", 100*time.Millisecond)
	v.SetDefault("poll_interval", 100*time.Millisecond)
	v.SetDefault("poll_attempts", 50)
	v.SetDefault("log_level", "info")
	v.SetDefault("iam_token", "")
	v.SetDefault("api_key", "")
	v.SetDefault("folder_id", "")
	v.SetDefault("voice", "marina")
}

// LoadConfig reads .env if present, then AMPLE_* environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("ample")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, err
	}

	cfg := &Config{
		DriverOrder:    v.GetString("driver_order"),
		InitTimeout:    v.GetDuration("init_timeout"),
		AttemptTimeout: v.GetDuration("attempt_timeout"),
		FetchTimeout:   v.GetDuration("fetch_timeout"),
		CacheTTL:       v.GetDuration("cache_ttl"),
		SampleRate:     v.GetInt("sample_rate"),
		BufferSize:     v.GetDuration("buffer_size"),
		PollInterval:   v.GetDuration("poll_interval"),
		PollAttempts:   v.GetInt("poll_attempts"),
		LogLevel:       level,
		IamToken:       v.GetString("iam_token"),
		ApiKey:         v.GetString("api_key"),
		FolderID:       v.GetString("folder_id"),
		Voice:          v.GetString("voice"),
	}

	if cfg.SampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if cfg.PollAttempts <= 0 {
		return nil, errors.New("poll attempts must be positive")
	}
	return cfg, nil
}

// SpeechEnabled reports whether credentials for speech sources are set
func (c *Config) SpeechEnabled() bool {
	return c.FolderID != "" && (c.IamToken != "" || c.ApiKey != "")
}
