package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and parses the UTC offset.
func Validate(cfg *Config) error {
	if len(cfg.Sources.Image) == 0 && len(cfg.Sources.Acquisition) == 0 {
		return errors.New("sources: an image or acquisition source is required for exposure windows")
	}

	if err := validateTimestamps(&cfg.Timestamps); err != nil {
		return fmt.Errorf("timestamps: %w", err)
	}

	if cfg.GapMultiplier < 0 {
		return fmt.Errorf("gap_multiplier: must not be negative, got %v", cfg.GapMultiplier)
	}
	if cfg.GapMultiplier == 0 {
		cfg.GapMultiplier = DefaultGapMultiplier
	}

	if cfg.PixelScaleArcsec < 0 {
		return fmt.Errorf("pixel_scale_arcsec: must not be negative, got %v", cfg.PixelScaleArcsec)
	}

	switch cfg.ReportUnit {
	case "":
		cfg.ReportUnit = DefaultReportUnit
	case "arcsec", "pixel":
	default:
		return fmt.Errorf("report_unit: must be arcsec or pixel, got %q", cfg.ReportUnit)
	}
	if cfg.ReportUnit == "arcsec" && cfg.PixelScaleArcsec == 0 {
		return errors.New("report_unit: arcsec requires pixel_scale_arcsec")
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateTimestamps(tc *TimestampsConfig) error {
	for _, chain := range [][]string{tc.Image, tc.Guide, tc.Acquisition} {
		for _, layout := range chain {
			if strings.TrimSpace(layout) == "" {
				return errors.New("empty layout in candidate chain")
			}
		}
	}

	if tc.UTCOffset == "" {
		tc.offsetSet = false
		return nil
	}

	offset, err := parseUTCOffset(tc.UTCOffset)
	if err != nil {
		return fmt.Errorf("utc_offset: %w", err)
	}
	tc.offset = offset
	tc.offsetSet = true
	return nil
}

// parseUTCOffset parses "+HH:MM", "-HH:MM" or "Z".
func parseUTCOffset(s string) (time.Duration, error) {
	if s == "Z" || s == "z" {
		return 0, nil
	}
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return 0, fmt.Errorf("expected +HH:MM or -HH:MM, got %q", s)
	}

	hours, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", s)
	}
	minutes, err := strconv.Atoi(s[4:6])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	if hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("offset %q out of range", s)
	}

	offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if s[0] == '-' {
		offset = -offset
	}
	return offset, nil
}

func parsePositiveFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("value must be positive, got %v", v)
	}
	return v, nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnIssues
	case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands ${VAR} or $VAR references in a token value.
func expandEnvVar(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}
