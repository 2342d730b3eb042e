// Package config loads marcx settings from defaults, an optional marcx.yaml
// and MARCX_ environment variables, and builds the CLI logger.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes environment overrides, e.g. MARCX_WORKERS.
const EnvPrefix = "MARCX"

// Config holds every setting the CLI reads.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// ClassifierTable is a range table file replacing the built-in one.
	ClassifierTable string `mapstructure:"classifier_table"`
	PresetDir       string `mapstructure:"preset_dir"`
	// Preset names a registered preset applied to every extraction.
	Preset string `mapstructure:"preset"`

	Workers int    `mapstructure:"workers"`
	Output  string `mapstructure:"output"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "console",
		PresetDir: "presets",
		Workers:   4,
		Output:    "json",
	}
}

// Load reads configuration. cfgFile, when set, must exist; otherwise
// marcx.yaml is looked up in the working directory and $HOME/.marcx and may be
// absent.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("classifier_table", defaults.ClassifierTable)
	v.SetDefault("preset_dir", defaults.PresetDir)
	v.SetDefault("preset", defaults.Preset)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("output", defaults.Output)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("marcx")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.marcx")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config log_level: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config log_format: %q is not console or json", c.LogFormat)
	}
	switch c.Output {
	case "json", "yaml", "table":
	default:
		return fmt.Errorf("config output: %q is not json, yaml or table", c.Output)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config workers: must be at least 1, got %d", c.Workers)
	}
	return nil
}

// NewLogger builds a logger writing to stderr at level in the console or
// json format.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	var config zap.Config
	switch strings.ToLower(format) {
	case "json":
		config = zap.NewProductionConfig()
	case "console", "":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = lvl > zapcore.DebugLevel

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
