package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultGapMultiplier  = 5.0
	DefaultReportUnit     = "pixel"
	DefaultUTCOffset      = "+00:00"
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvUTCOffset  = "ASTROREPORT_UTC_OFFSET"
	EnvPixelScale = "ASTROREPORT_PIXEL_SCALE"
)

// DefaultConfig returns a configuration with sensible defaults. Source
// patterns are intentionally empty; at least one exposure source must be
// configured.
func DefaultConfig() *Config {
	return &Config{
		Timestamps: TimestampsConfig{
			UTCOffset: DefaultUTCOffset,
		},
		GapMultiplier: DefaultGapMultiplier,
		ReportUnit:    DefaultReportUnit,
	}
}

// applyEnvironmentOverrides applies environment variable overrides.
func (c *Config) applyEnvironmentOverrides() {
	if offset := os.Getenv(EnvUTCOffset); offset != "" {
		c.Timestamps.UTCOffset = offset
	}
	if scale := os.Getenv(EnvPixelScale); scale != "" {
		if v, err := parsePositiveFloat(scale); err == nil {
			c.PixelScaleArcsec = v
		}
	}
}
