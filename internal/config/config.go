// Package config loads revisa's settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/revisa/internal/srs"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates nested keys: REVISA_LOG__LEVEL sets log.level.
const EnvPrefix = "REVISA_"

// DefaultFile is read when present and no other file is named.
const DefaultFile = "revisa.yaml"

// FileFlag names the flag that selects the config file.
const FileFlag = "config"

type Config struct {
	DB       string `koanf:"db" validate:"required"`
	Addr     string `koanf:"addr" validate:"required,hostname_port"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
	// Timezone is the IANA name of the learner's calendar. Empty means the
	// process's local zone.
	Timezone string `koanf:"timezone"`
	// CORSOrigins are the browser origins allowed to call the HTTP API.
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,url"`

	Log       LogConfig     `koanf:"log"`
	Scheduler srs.Settings  `koanf:"scheduler"`
	Session   SessionConfig `koanf:"session"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	// Format is json or text. Empty lets each command pick.
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

type SessionConfig struct {
	MaxNew     int    `koanf:"max_new" validate:"gte=0"`
	MaxReviews int    `koanf:"max_reviews" validate:"gte=0"`
	Order      string `koanf:"order" validate:"oneof=random difficulty chronological"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	sel := srs.DefaultSelectOptions()
	return Config{
		DB:        "revisa.db",
		Addr:      "localhost:8080",
		ReposDir:  "repos",
		Log:       LogConfig{Level: "info"},
		Scheduler: srs.DefaultSettings(),
		Session: SessionConfig{
			MaxNew:     sel.MaxNew,
			MaxReviews: sel.MaxReviews,
			Order:      sel.Order.String(),
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// DefaultFile is used if it exists. Only flags the user actually set on
// flags override the other layers. A .env file in the working directory is
// loaded into the environment first.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// flagKey maps --repos-dir to repos_dir and --log-level to log.level.
// Unset flags are ignored so their defaults never shadow the file or the
// environment.
func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed || f.Name == FileFlag {
			return "", nil
		}
		key := f.Name
		if group, rest, ok := strings.Cut(key, "-"); ok && (group == "log" || group == "session" || group == "scheduler") {
			key = group + "." + rest
		}
		key = strings.ReplaceAll(key, "-", "_")
		return key, posflag.FlagVal(flags, f)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field, including the scheduler settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SelectOptions turns the session defaults into selector options.
func (s SessionConfig) SelectOptions() (srs.SelectOptions, error) {
	order, err := srs.ParseOrder(s.Order)
	if err != nil {
		return srs.SelectOptions{}, err
	}
	opts := srs.DefaultSelectOptions()
	opts.MaxNew = s.MaxNew
	opts.MaxReviews = s.MaxReviews
	opts.Order = order
	return opts, nil
}

// NewLogger builds the process logger described by c, using defaultFormat
// when c leaves the format open.
func NewLogger(w io.Writer, c LogConfig, defaultFormat string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	format := c.Format
	if format == "" {
		format = defaultFormat
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RegisterFlags adds the flags Load understands to flags, with Default
// values shown in help output.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String(FileFlag, "", "path to a YAML config file (default: ./"+DefaultFile+" if present)")
	flags.String("db", d.DB, "path to the SQLite database file")
	flags.String("repos-dir", d.ReposDir, "directory where git sources are cloned")
	flags.String("timezone", d.Timezone, "IANA timezone of the learner's calendar (default: local)")
	flags.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	flags.String("log-format", d.Log.Format, "log format: json or text (default: json for serve, text otherwise)")
}
