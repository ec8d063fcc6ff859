// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	TelegramToken               string  `mapstructure:"TELEGRAM_BOT_TOKEN"`
	ActivationPassword          string  `mapstructure:"ACTIVATION_PASSWORD"`
	RedisURL                    string  `mapstructure:"REDIS_URL"`
	RedisHost                   string  `mapstructure:"REDIS_HOST"`
	RedisPort                   string  `mapstructure:"REDIS_PORT"`
	Env                         string  `mapstructure:"APP_ENV"`
	LogLevel                    string  `mapstructure:"LOG_LEVEL"`
	OpsAddr                     string  `mapstructure:"OPS_ADDR"`
	FeatureFlags                string  `mapstructure:"FEATURE_FLAGS"`
	SubmissionRateLimit         int     `mapstructure:"SUBMISSION_RATE_LIMIT"`
	SubmissionRateWindowMinutes int     `mapstructure:"SUBMISSION_RATE_WINDOW_MINUTES"`
	BotDebug                    bool    `mapstructure:"BOT_DEBUG"`
	TracingEnabled              bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter             string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint                string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio         float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			log.Printf("No profile-specific config 'config.%s.yml', using environment only", env)
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("ACTIVATION_PASSWORD", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("OPS_ADDR", ":9375")
	viper.SetDefault("FEATURE_FLAGS", "feedback=on,submission_rate_limit=on")
	viper.SetDefault("SUBMISSION_RATE_LIMIT", 10)
	viper.SetDefault("SUBMISSION_RATE_WINDOW_MINUTES", 60)
	viper.SetDefault("BOT_DEBUG", false)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// normalize fills REDIS_URL from REDIS_HOST/REDIS_PORT when only those are set.
func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	if c.RedisURL == "" {
		host := strings.TrimSpace(c.RedisHost)
		if host == "" {
			host = "localhost"
		}
		c.RedisURL = net.JoinHostPort(host, strings.TrimSpace(c.RedisPort))
	}
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.ActivationPassword == "" {
		return errors.New("ACTIVATION_PASSWORD is required")
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	if c.SubmissionRateLimit < 0 {
		return errors.New("SUBMISSION_RATE_LIMIT must not be negative")
	}
	if c.SubmissionRateLimit > 0 && c.SubmissionRateWindowMinutes <= 0 {
		return errors.New("SUBMISSION_RATE_WINDOW_MINUTES must be positive when rate limiting is enabled")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}

	if c.IsProduction() {
		if len(c.ActivationPassword) < 8 {
			return errors.New("ACTIVATION_PASSWORD must be at least 8 characters in production")
		}
	} else if len(c.ActivationPassword) < 8 {
		log.Println("WARNING: ACTIVATION_PASSWORD is shorter than 8 characters. Use a stronger password in production.")
	}

	return nil
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// SubmissionRateWindow returns the rate-limit window as a duration.
func (c *Config) SubmissionRateWindow() time.Duration {
	return time.Duration(c.SubmissionRateWindowMinutes) * time.Minute
}
