package core

import (
	"fmt"
	"strings"
	"time"
)

type DispatchConfig struct {
	DefaultRateLimitSeconds int   `koanf:"default_rate_limit_seconds" mapstructure:"default_rate_limit_seconds"`
	DeliveryTimeoutSeconds  int   `koanf:"delivery_timeout_seconds" mapstructure:"delivery_timeout_seconds"`
	MaxResponseBodyBytes    int64 `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Dispatch    DispatchConfig `koanf:"dispatch" mapstructure:"dispatch"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "webhooks",
		Dispatch: DispatchConfig{
			DefaultRateLimitSeconds: 10,
			DeliveryTimeoutSeconds:  30,
			MaxResponseBodyBytes:    10 << 20,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Dispatch.DefaultRateLimitSeconds < 0 {
		return fmt.Errorf("core: dispatch.default_rate_limit_seconds must not be negative")
	}
	if c.Dispatch.DeliveryTimeoutSeconds < 0 {
		return fmt.Errorf("core: dispatch.delivery_timeout_seconds must not be negative")
	}
	if c.Dispatch.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: dispatch.max_response_body_bytes must not be negative")
	}
	return nil
}

// DefaultRateLimit maps the configured default window to a policy value.
// Zero seconds means rate limiting is off for connectors without their own
// policy.
func (c Config) DefaultRateLimit() RateLimitPolicy {
	if c.Dispatch.DefaultRateLimitSeconds <= 0 {
		return NoRateLimit()
	}
	return RateLimitPolicy{
		MinInterval: time.Duration(c.Dispatch.DefaultRateLimitSeconds) * time.Second,
	}
}

func (c Config) DeliveryTimeout() time.Duration {
	if c.Dispatch.DeliveryTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Dispatch.DeliveryTimeoutSeconds) * time.Second
}
