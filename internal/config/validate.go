package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are not checked
// here because commands that work from a saved catalog never need them.
func (c *Config) Validate() error {
	if err := c.validateRetroAchievements(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRetroAchievements() error {
	parsed, err := url.Parse(c.RetroAchievements.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("retroachievements.base_url must be an absolute URL, got %q", c.RetroAchievements.BaseURL)
	}
	if c.RetroAchievements.TimeoutSeconds < 0 {
		return errors.New("retroachievements.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.ConsoleID <= 0 {
		return errors.New("fetch.console_id must be positive")
	}
	if c.Fetch.PageSize < 1 || c.Fetch.PageSize > 500 {
		return errors.New("fetch.page_size must be between 1 and 500")
	}
	if c.Fetch.PacingMillis < 0 {
		return errors.New("fetch.pacing_ms must not be negative")
	}
	for i, s := range c.Fetch.BackoffSeconds {
		if s <= 0 {
			return fmt.Errorf("fetch.backoff_seconds[%d] must be positive", i)
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	seen := make(map[string]struct{}, len(c.Matching.RegionPriority))
	for _, region := range c.Matching.RegionPriority {
		key := strings.ToLower(region)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("matching.region_priority lists %q twice", region)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
