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

const (
	APIVersion   = "v2"
	DomainSuffix = "freshservice.com"
	MinAPIKeyLen = 10
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	Freshservice FreshserviceConfig `mapstructure:"freshservice"`
	Log          LogConfig          `mapstructure:"log"`
}

// FreshserviceConfig holds Freshservice API configuration
type FreshserviceConfig struct {
	Domain               string        `mapstructure:"domain"`
	APIKey               string        `mapstructure:"api_key"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// BaseURL is the root of the v2 REST API for the configured domain.
func (c FreshserviceConfig) BaseURL() string {
	return fmt.Sprintf("https://%s/api/%s", c.Domain, APIVersion)
}

// Flags returns the command line flag set understood by Load.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("freshservice-ticketer", pflag.ContinueOnError)
	flags.String("config", "", "path to a YAML config file (default ./config.yaml if present)")
	flags.String("domain", "", "Freshservice domain, e.g. acme.freshservice.com")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-file", "", "file the log is written to")
	return flags
}

// Load builds the configuration from, in increasing priority: defaults,
// config.yaml, .env, the environment and parsed flags. A missing config file
// or .env is not an error.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// Keys map onto env names directly: freshservice.max_retries is
	// FRESHSERVICE_MAX_RETRIES, log.level is LOG_LEVEL.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Name used by existing .env files.
	_ = v.BindEnv("freshservice.api_key", "API_KEY", "FRESHSERVICE_API_KEY")

	if flags != nil {
		bindFlag(v, flags, "freshservice.domain", "domain")
		bindFlag(v, flags, "log.level", "log-level")
		bindFlag(v, flags, "log.file", "log-file")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Freshservice.Domain = strings.TrimSpace(config.Freshservice.Domain)
	config.Freshservice.APIKey = strings.TrimSpace(config.Freshservice.APIKey)

	return &config, nil
}

// Validate performs the startup sanity checks on the Freshservice settings.
func (c *Config) Validate() error {
	fc := c.Freshservice
	if fc.Domain == "" || fc.APIKey == "" {
		return fmt.Errorf("%w: please set FRESHSERVICE_DOMAIN and API_KEY in your .env file", ErrInvalidConfig)
	}
	if !strings.HasSuffix(fc.Domain, DomainSuffix) {
		return fmt.Errorf("%w: invalid Freshservice domain %q, should end with %q", ErrInvalidConfig, fc.Domain, DomainSuffix)
	}
	if len(fc.APIKey) < MinAPIKeyLen {
		return fmt.Errorf("%w: API key appears to be invalid or too short", ErrInvalidConfig)
	}
	if fc.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be at least 1", ErrInvalidConfig)
	}
	if fc.RetryDelay < 0 || fc.Timeout < 0 || fc.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("%w: timeout, retry_delay and max_requests_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("%w: log max_size_mb and max_backups must not be negative", ErrInvalidConfig)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("freshservice.domain", "")
	v.SetDefault("freshservice.api_key", "")
	v.SetDefault("freshservice.timeout", 30*time.Second)
	v.SetDefault("freshservice.max_retries", 3)
	v.SetDefault("freshservice.retry_delay", 2*time.Second)
	v.SetDefault("freshservice.max_requests_per_second", 2)

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.file", "freshservice.log")
	v.SetDefault("log.max_size_mb", 1)
	v.SetDefault("log.max_backups", 5)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if flag := flags.Lookup(name); flag != nil {
		_ = v.BindPFlag(key, flag)
	}
}
