package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath         = "config.toml"
	DefaultHTTPAddr           = ":3000"
	DefaultPublicDir          = "public"
	DefaultTranscoderBinary   = "convert"
	DefaultTranscoderWorkers  = 2
	DefaultMaxAssetBytes      = 200 * 1024 * 1024
	DefaultRetentionSchedule  = "@every 1h"
	DefaultRetentionMaxAge    = "72h"
	DefaultRetentionMaxBytes  = 1 << 30
	DefaultLINEAPIBaseURL     = "https://api.line.me"
	DefaultLINEDataAPIBaseURL = "https://api-data.line.me"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Channel   ChannelConfig   `toml:"channel"`
	Media     MediaConfig     `toml:"media"`
	Templates TemplatesConfig `toml:"templates"`
	Bot       BotConfig       `toml:"bot"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
	// BaseURL is the public origin that downloaded media is served from.
	BaseURL string `toml:"base_url" validate:"required,url"`
}

// ChannelConfig holds the messaging channel credentials.
type ChannelConfig struct {
	AccessToken    string `toml:"access_token" validate:"required"`
	Secret         string `toml:"secret" validate:"required"`
	APIBaseURL     string `toml:"api_base_url" validate:"omitempty,url"`
	DataAPIBaseURL string `toml:"data_api_base_url" validate:"omitempty,url"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
}

type MediaConfig struct {
	PublicDir  string           `toml:"public_dir" validate:"required"`
	MaxBytes   int64            `toml:"max_bytes" validate:"gte=0"`
	Transcoder TranscoderConfig `toml:"transcoder"`
	Retention  RetentionConfig  `toml:"retention"`
}

type TranscoderConfig struct {
	Binary  string `toml:"binary" validate:"required"`
	Workers int    `toml:"workers" validate:"gte=1"`
}

type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
	MaxAge   string `toml:"max_age"`
	MaxBytes int64  `toml:"max_bytes" validate:"gte=0"`
}

// MaxAgeDuration parses MaxAge; an empty value disables the age bound.
func (c RetentionConfig) MaxAgeDuration() (time.Duration, error) {
	return parseOptionalDuration("media.retention.max_age", c.MaxAge)
}

type TemplatesConfig struct {
	// Path points at a JSON or YAML catalogue. Empty uses the built-in one.
	Path string `toml:"path"`
}

type BotConfig struct {
	EnableBye    bool   `toml:"enable_bye"`
	EventTimeout string `toml:"event_timeout"`
}

// EventTimeoutDuration parses EventTimeout; zero means handlers run unbounded.
func (c BotConfig) EventTimeoutDuration() (time.Duration, error) {
	return parseOptionalDuration("bot.event_timeout", c.EventTimeout)
}

// Default returns the configuration used before the file and environment apply.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Channel: ChannelConfig{
			APIBaseURL:     DefaultLINEAPIBaseURL,
			DataAPIBaseURL: DefaultLINEDataAPIBaseURL,
			TimeoutSeconds: 30,
		},
		Media: MediaConfig{
			PublicDir: DefaultPublicDir,
			MaxBytes:  DefaultMaxAssetBytes,
			Transcoder: TranscoderConfig{
				Binary:  DefaultTranscoderBinary,
				Workers: DefaultTranscoderWorkers,
			},
			Retention: RetentionConfig{
				Enabled:  true,
				Schedule: DefaultRetentionSchedule,
				MaxAge:   DefaultRetentionMaxAge,
				MaxBytes: DefaultRetentionMaxBytes,
			},
		},
		Bot: BotConfig{
			EnableBye: true,
		},
	}
}

// Load reads the configuration like Read and validates the result.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Read decodes the TOML file at path (a missing file is fine) over the
// defaults and applies environment overrides. It does not validate.
func Read(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overlays the environment variables the platform tooling sets.
func applyEnv(cfg *Config, lookup lookupFunc) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("CHANNEL_ACCESS_TOKEN", &cfg.Channel.AccessToken)
	set("CHANNEL_SECRET", &cfg.Channel.Secret)
	set("BASE_URL", &cfg.Server.BaseURL)
	set("LOG_LEVEL", &cfg.Log.Level)
	set("LOG_FORMAT", &cfg.Log.Format)
	set("PUBLIC_DIR", &cfg.Media.PublicDir)

	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		port = strings.TrimSpace(port)
		if strings.Contains(port, ":") {
			cfg.Server.Addr = port
		} else {
			cfg.Server.Addr = ":" + port
		}
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
}

var validate = validator.New()

// Validate checks required fields and value formats.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Media.Retention.MaxAgeDuration(); err != nil {
		return err
	}
	if _, err := cfg.Bot.EventTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func parseOptionalDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return d, nil
}
