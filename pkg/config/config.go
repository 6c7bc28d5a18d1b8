package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultBaseURL is the production KeyAuth endpoint.
	DefaultBaseURL = "https://keyauth.win/api/1.2/"

	DefaultMaxTokens  = 10
	DefaultRefillRate = 5000 * time.Millisecond
)

// Config is the full configuration surface of the client.
type Config struct {
	App          AppConfig       `mapstructure:"app"`
	BaseURL      string          `mapstructure:"base_url"`
	ConvertTimes bool            `mapstructure:"convert_times"`
	RateLimit    RateLimitConfig `mapstructure:"ratelimit"`
	Logger       LoggerConfig    `mapstructure:"logger"`
	Transport    TransportConfig `mapstructure:"transport"`
}

// AppConfig identifies the calling application on the remote service. Name
// and OwnerID are sent with every request.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	OwnerID string `mapstructure:"ownerid"`
	Version string `mapstructure:"version"`
}

// RateLimitConfig sizes the outbound token bucket. RefillRate is the time to
// regenerate one token.
type RateLimitConfig struct {
	MaxTokens  int           `mapstructure:"max_tokens"`
	RefillRate time.Duration `mapstructure:"refill_rate"`
}

type LoggerConfig struct {
	Active bool   `mapstructure:"active"`
	Level  string `mapstructure:"level"`
	Name   string `mapstructure:"name"`
}

type TransportConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	BreakerEnabled     bool          `mapstructure:"breaker_enabled"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

// Load reads config.yaml from configPath (falling back to ./config and the
// working directory) with environment variable overrides, e.g.
// KEYAUTH_APP_OWNERID.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("keyauth")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No file is fine; defaults plus environment variables apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration a zero-setup caller gets.
func Default() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		RateLimit: RateLimitConfig{
			MaxTokens:  DefaultMaxTokens,
			RefillRate: DefaultRefillRate,
		},
		Logger: LoggerConfig{
			Active: true,
			Level:  "info",
			Name:   "keyauth",
		},
		Transport: TransportConfig{
			Timeout:            15 * time.Second,
			BreakerEnabled:     true,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
	}
}

// Normalize fills zero values with defaults so partially populated configs
// behave like Default().
func (c *Config) Normalize() {
	def := Default()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.RateLimit.MaxTokens <= 0 {
		c.RateLimit.MaxTokens = def.RateLimit.MaxTokens
	}
	if c.RateLimit.RefillRate <= 0 {
		c.RateLimit.RefillRate = def.RateLimit.RefillRate
	}
	if c.Logger.Level == "" {
		c.Logger.Level = def.Logger.Level
	}
	if c.Logger.Name == "" {
		c.Logger.Name = def.Logger.Name
	}
	if c.Transport.Timeout <= 0 {
		c.Transport.Timeout = def.Transport.Timeout
	}
	if c.Transport.BreakerMaxFailures == 0 {
		c.Transport.BreakerMaxFailures = def.Transport.BreakerMaxFailures
	}
	if c.Transport.BreakerTimeout <= 0 {
		c.Transport.BreakerTimeout = def.Transport.BreakerTimeout
	}
}

// Validate rejects configurations that cannot identify the application.
func (c *Config) Validate() error {
	if c.App.Name == "" || c.App.OwnerID == "" {
		return errors.New("config: app name and ownerid are required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("convert_times", false)
	v.SetDefault("ratelimit.max_tokens", DefaultMaxTokens)
	v.SetDefault("ratelimit.refill_rate", DefaultRefillRate)
	v.SetDefault("logger.active", true)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.name", "keyauth")
	v.SetDefault("transport.timeout", 15*time.Second)
	v.SetDefault("transport.breaker_enabled", true)
	v.SetDefault("transport.breaker_max_failures", 5)
	v.SetDefault("transport.breaker_timeout", 30*time.Second)
}
