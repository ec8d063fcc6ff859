package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		TelegramToken:               "123:abc",
		ActivationPassword:          "correct horse battery",
		RedisURL:                    "redis://localhost:6379/0",
		Env:                         "development",
		SubmissionRateLimit:         10,
		SubmissionRateWindowMinutes: 60,
		TracingSamplerRatio:         1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing token", func(c *Config) { c.TelegramToken = "" }, true},
		{"missing password", func(c *Config) { c.ActivationPassword = "" }, true},
		{"missing redis", func(c *Config) { c.RedisURL = "" }, true},
		{"negative rate limit", func(c *Config) { c.SubmissionRateLimit = -1 }, true},
		{"rate limit without window", func(c *Config) { c.SubmissionRateWindowMinutes = 0 }, true},
		{"rate limit disabled without window", func(c *Config) {
			c.SubmissionRateLimit = 0
			c.SubmissionRateWindowMinutes = 0
		}, false},
		{"sampler out of range", func(c *Config) { c.TracingSamplerRatio = 1.5 }, true},
		{"short password in development", func(c *Config) { c.ActivationPassword = "abc" }, false},
		{"short password in production", func(c *Config) {
			c.Env = "production"
			c.ActivationPassword = "abc"
		}, true},
		{"long password in production", func(c *Config) { c.Env = "prod" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_NormalizeRedisFromHostPort(t *testing.T) {
	c := &Config{RedisHost: "redis", RedisPort: "6380", Env: " Production "}
	c.normalize()
	assert.Equal(t, "redis:6380", c.RedisURL)
	assert.Equal(t, "production", c.Env)

	c = &Config{RedisURL: " redis://cache:6379/2 ", RedisHost: "ignored", RedisPort: "1"}
	c.normalize()
	assert.Equal(t, "redis://cache:6379/2", c.RedisURL)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "42:token")
	t.Setenv("ACTIVATION_PASSWORD", "s3cret-password")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("SUBMISSION_RATE_LIMIT", "3")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "42:token", c.TelegramToken)
	assert.Equal(t, "s3cret-password", c.ActivationPassword)
	assert.Equal(t, "redis:6379", c.RedisURL)
	assert.Equal(t, 3, c.SubmissionRateLimit)
	assert.Equal(t, time.Hour, c.SubmissionRateWindow())
	assert.Equal(t, "feedback=on,submission_rate_limit=on", c.FeatureFlags)
}

func TestLoadConfig_MissingToken(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("ACTIVATION_PASSWORD", "s3cret-password")

	_, err := LoadConfig()
	assert.Error(t, err)
}
