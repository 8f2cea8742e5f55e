package checkout

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds checkout configuration
type Config struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	ResultTTL    time.Duration
	// PublicBaseURL is where providers reach the webhook routes.
	PublicBaseURL string
}

func DefaultConfig() Config {
	return Config{
		PollInterval:  3 * time.Second,
		PollTimeout:   5 * time.Minute,
		ResultTTL:     24 * time.Hour,
		PublicBaseURL: "http://localhost:8080",
	}
}

// GetConfig returns checkout configuration with defaults
func GetConfig() Config {
	def := DefaultConfig()
	viper.SetDefault("checkout.poll_interval", def.PollInterval)
	viper.SetDefault("checkout.poll_timeout", def.PollTimeout)
	viper.SetDefault("checkout.result_ttl", def.ResultTTL)
	viper.SetDefault("checkout.public_base_url", def.PublicBaseURL)

	return Config{
		PollInterval:  viper.GetDuration("checkout.poll_interval"),
		PollTimeout:   viper.GetDuration("checkout.poll_timeout"),
		ResultTTL:     viper.GetDuration("checkout.result_ttl"),
		PublicBaseURL: strings.TrimRight(viper.GetString("checkout.public_base_url"), "/"),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = def.PollTimeout
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = def.ResultTTL
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	return c
}
