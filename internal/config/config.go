// Package config loads runtime settings for the demo binaries from defaults,
// an optional config file, an optional .env file, DEMO_* environment
// variables, and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/internal/observability"
	"github.com/signalsfoundry/incident-demo/model"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "DEMO"

// DefaultEnvFile is loaded when present; its absence is not an error.
const DefaultEnvFile = ".env"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr      string  `mapstructure:"http_addr"`
	MetricsAddr   string  `mapstructure:"metrics_addr"`
	GRPCAddr      string  `mapstructure:"grpc_addr"`
	DefaultRole   string  `mapstructure:"default_role"`
	PlaybackSpeed float64 `mapstructure:"playback_speed"`
	AutoEnable    bool    `mapstructure:"auto_enable"`
	AutoReset     string  `mapstructure:"auto_reset"`

	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

var defaults = map[string]any{
	"http_addr":            ":8080",
	"metrics_addr":         ":9090",
	"grpc_addr":            ":50051",
	"default_role":         string(model.RoleAdmin),
	"playback_speed":       1.0,
	"auto_enable":          false,
	"auto_reset":           "",
	"log.level":            "info",
	"log.format":           "text",
	"log.add_source":       false,
	"tracing.enabled":      false,
	"tracing.service_name": "incident-demo",
	"tracing.exporter":     "stdout",
	"tracing.endpoint":     "",
	"tracing.sample_ratio": 1.0,
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"http-addr":    "http_addr",
	"metrics-addr": "metrics_addr",
	"grpc-addr":    "grpc_addr",
	"role":         "default_role",
	"speed":        "playback_speed",
	"auto-enable":  "auto_enable",
	"auto-reset":   "auto_reset",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"tracing":      "tracing.enabled",
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an optional YAML, JSON or TOML file.
	ConfigFile string
	// EnvFile is a dotenv file. Empty means DefaultEnvFile, which may be
	// absent; an explicitly named file must exist.
	EnvFile string
	// Flags, when set, overrides config keys with any flags the user set.
	Flags *pflag.FlagSet
}

// RegisterFlags defines the shared command-line flags on fs. Flag defaults
// are left empty so unset flags never shadow file or environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", "", "HTTP API listen address (default :8080)")
	fs.String("metrics-addr", "", "Prometheus /metrics listen address (default :9090)")
	fs.String("grpc-addr", "", "gRPC health listen address (default :50051)")
	fs.String("role", "", "initial role for the permissions store (default admin)")
	fs.Float64("speed", 0, "initial playback speed multiplier (default 1)")
	fs.Bool("auto-enable", false, "enable demo mode at startup")
	fs.String("auto-reset", "", "cron spec for the scheduled demo reset, e.g. \"0 3 * * *\"")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: text or json")
	fs.Bool("tracing", false, "enable OpenTelemetry tracing")
}

// Load resolves a Config and validates it.
func Load(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names kept from the tracing and logging env conventions.
	_ = v.BindEnv("tracing.endpoint", EnvPrefix+"_OTLP_ENDPOINT", EnvPrefix+"_TRACING_ENDPOINT")
	_ = v.BindEnv("log.level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", EnvPrefix+"_LOG_FORMAT", "LOG_FORMAT")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		opts.Flags.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				v.Set(key, f.Value.String())
			}
		})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Validate reports every invalid field, joined, each wrapping
// ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if _, err := model.ParseRole(c.DefaultRole); err != nil {
		errs = append(errs, fmt.Errorf("%w: default_role: %v", ErrInvalidConfig, err))
	}
	if c.PlaybackSpeed <= 0 {
		errs = append(errs, fmt.Errorf("%w: playback_speed must be positive, got %v", ErrInvalidConfig, c.PlaybackSpeed))
	}
	if c.AutoReset != "" {
		if _, err := cron.ParseStandard(c.AutoReset); err != nil {
			errs = append(errs, fmt.Errorf("%w: auto_reset %q: %v", ErrInvalidConfig, c.AutoReset, err))
		}
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "stdout", "otlp", "otlpgrpc":
	default:
		errs = append(errs, fmt.Errorf("%w: tracing.exporter %q", ErrInvalidConfig, c.Tracing.Exporter))
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("%w: tracing.sample_ratio must be within [0,1], got %v", ErrInvalidConfig, r))
	}
	return errors.Join(errs...)
}

// Role returns the configured initial role. Call after Validate.
func (c Config) Role() model.Role {
	return model.Role(c.DefaultRole)
}

// Logging converts the log section for logging.New.
func (c Config) Logging() logging.Config {
	return logging.Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		AddSource: c.Log.AddSource,
	}
}

// TracingConfig converts the tracing section for observability.InitTracing.
func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
