package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateAcoustID(); err != nil {
		return err
	}
	if err := c.validateReleaseSelector(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return errors.New("paths.source_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TargetDir) == "" {
		return errors.New("paths.target_dir must be set")
	}
	if c.Paths.SourceDir == c.Paths.TargetDir {
		return errors.New("paths.source_dir and paths.target_dir must differ")
	}
	return nil
}

func (c *Config) validateScan() error {
	if len(c.Scan.AllowedExtensions) == 0 {
		return errors.New("scan.allowed_extensions must list at least one extension")
	}
	return nil
}

// The API key is not required here: without it every scan takes the search
// fallback, which is a legitimate way to run.
func (c *Config) validateAcoustID() error {
	if c.AcoustID.MatchThreshold < 0 || c.AcoustID.MatchThreshold > 1 {
		return errors.New("acoustid.match_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateReleaseSelector() error {
	rs := c.ReleaseSelector
	weights := map[string]float64{
		"release_selector.country.weight":                  rs.Country.Weight,
		"release_selector.release_group_type.weight":       rs.ReleaseGroupType.Weight,
		"release_selector.release_title_distance.weight":   rs.ReleaseTitleDistance.Weight,
		"release_selector.recording_title_distance.weight": rs.RecordingTitleDistance.Weight,
	}
	for key, weight := range weights {
		if weight < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	for key, threshold := range map[string]float64{
		"release_selector.release_title_distance.threshold":   rs.ReleaseTitleDistance.Threshold,
		"release_selector.recording_title_distance.threshold": rs.RecordingTitleDistance.Threshold,
	} {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
