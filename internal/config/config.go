package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. CCSTMT_THOROUGH.
const EnvPrefix = "CCSTMT"

// Config holds the settings shared by every command.
type Config struct {
	Thorough   bool          `mapstructure:"thorough"`
	Verbose    bool          `mapstructure:"verbose"`
	Debug      bool          `mapstructure:"debug"`
	LogLevel   string        `mapstructure:"log-level"`
	OutputPath string        `mapstructure:"output"`
	InputDir   string        `mapstructure:"input-dir"`
	OutputDir  string        `mapstructure:"output-dir"`
	Workers    int           `mapstructure:"workers"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Addr       string        `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("thorough", false)
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("output", "")
	v.SetDefault("input-dir", "in")
	v.SetDefault("output-dir", "out")
	v.SetDefault("workers", 4)
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("addr", ":8080")
}

// Build resolves the configuration from, in order of precedence, command
// flags, CCSTMT_* environment variables (a .env file is loaded first when
// present), the config file and defaults. An empty cfgFile looks for
// config.yaml in the working directory and carries on without one.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Debug {
		cfg.Verbose = true
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &cfg, nil
}
