// Package config provides configuration loading and validation for the
// session reporter.
package config

import (
	"time"

	"github.com/ComicStans-dev/astro-session-reporter/pkg/session"
	"github.com/ComicStans-dev/astro-session-reporter/pkg/timestamp"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Sources    SourcesConfig    `yaml:"sources"`
	Timestamps TimestampsConfig `yaml:"timestamps"`

	// GapMultiplier scales the typical inter-record interval into the
	// session-boundary threshold.
	GapMultiplier float64 `yaml:"gap_multiplier"`

	// PixelScaleArcsec converts guide-camera pixels to arcseconds.
	// Zero disables conversion.
	PixelScaleArcsec float64 `yaml:"pixel_scale_arcsec"`

	// ReportUnit is the unit guiding statistics are reported in
	// (arcsec or pixel).
	ReportUnit string `yaml:"report_unit"`

	// UnitCompatibility lists unit pairs allowed to combine into one
	// RMS. Identical units are always compatible.
	UnitCompatibility [][2]string `yaml:"unit_compatibility,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// SourcesConfig lists the file patterns per record stream.
type SourcesConfig struct {
	Image       []string `yaml:"image"`
	Guide       []string `yaml:"guide"`
	Acquisition []string `yaml:"acquisition"`
}

// TimestampsConfig declares the per-source timestamp layout chains and
// the UTC offset of zone-less text.
type TimestampsConfig struct {
	// Image, Guide and Acquisition are ordered Go time layouts, most
	// specific first. Empty means the built-in chain.
	Image       []string `yaml:"image,omitempty"`
	Guide       []string `yaml:"guide,omitempty"`
	Acquisition []string `yaml:"acquisition,omitempty"`

	// UTCOffset is "+HH:MM" or "-HH:MM"; empty leaves the offset
	// unknown, which downgrades zone-less precision.
	UTCOffset string `yaml:"utc_offset,omitempty"`

	// offset is the parsed UTCOffset (populated during validation).
	offset    time.Duration
	offsetSet bool
}

// Offset returns the parsed UTC offset and whether one was configured.
func (t *TimestampsConfig) Offset() (time.Duration, bool) {
	return t.offset, t.offsetSet
}

// Normalizer builds the timestamp normalizer this configuration
// describes.
func (t *TimestampsConfig) Normalizer() *timestamp.Normalizer {
	opts := []timestamp.Option{
		timestamp.WithCandidates(timestamp.SourceImage, t.Image),
		timestamp.WithCandidates(timestamp.SourceGuide, t.Guide),
		timestamp.WithCandidates(timestamp.SourceAcquisition, t.Acquisition),
	}
	if t.offsetSet {
		opts = append(opts, timestamp.WithUTCOffset(t.offset))
	}
	return timestamp.NewNormalizer(opts...)
}

// Compatible reports whether guiding errors in units a and b may fold
// into one RMS, per the configured table.
func (c *Config) Compatible(a, b session.Unit) bool {
	if a == b {
		return true
	}
	for _, pair := range c.UnitCompatibility {
		if (session.Unit(pair[0]) == a && session.Unit(pair[1]) == b) ||
			(session.Unit(pair[0]) == b && session.Unit(pair[1]) == a) {
			return true
		}
	}
	return false
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when the run produced orphans,
	// skips or parse failures (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for report delivery.
type WebhookConfig struct {
	Name    string         `yaml:"name,omitempty"`
	URL     string         `yaml:"url"`
	Token   string         `yaml:"token,omitempty"`
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`
	Timeout time.Duration  `yaml:"timeout,omitempty"`
}
