package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeRetroAchievements()
	c.normalizeFetch()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	if err := c.normalizeOrganize(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeRetroAchievements() {
	ra := &c.RetroAchievements
	ra.BaseURL = strings.TrimRight(strings.TrimSpace(ra.BaseURL), "/")
	if ra.BaseURL == "" {
		ra.BaseURL = defaultBaseURL
	}
	ra.Username = strings.TrimSpace(ra.Username)
	ra.APIKey = strings.TrimSpace(ra.APIKey)
	ra.UserAgent = strings.TrimSpace(ra.UserAgent)
	if ra.UserAgent == "" {
		ra.UserAgent = defaultUserAgent
	}
	if ra.TimeoutSeconds == 0 {
		ra.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.PageSize == 0 {
		c.Fetch.PageSize = defaultPageSize
	}
	if c.Fetch.BackoffSeconds == nil {
		c.Fetch.BackoffSeconds = append([]int(nil), defaultBackoffSeconds...)
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RomsDir) == "" {
		c.Paths.RomsDir = defaultRomsDir
	}
	if c.Paths.RomsDir, err = expandPath(c.Paths.RomsDir); err != nil {
		return fmt.Errorf("paths.roms_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	c.Paths.FilePrefix = strings.TrimSpace(c.Paths.FilePrefix)
	if c.Paths.FilePrefix == "" {
		c.Paths.FilePrefix = defaultFilePrefix
	}
	return nil
}

func (c *Config) normalizeMatching() {
	seen := make(map[string]struct{}, len(c.Matching.Extensions))
	exts := make([]string, 0, len(c.Matching.Extensions))
	for _, ext := range c.Matching.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Matching.Extensions = exts

	regions := make([]string, 0, len(c.Matching.RegionPriority))
	for _, region := range c.Matching.RegionPriority {
		if region = strings.TrimSpace(region); region != "" {
			regions = append(regions, region)
		}
	}
	if len(regions) == 0 {
		regions = append(regions, defaultRegionPriority...)
	}
	c.Matching.RegionPriority = regions
}

func (c *Config) normalizeOrganize() error {
	if strings.TrimSpace(c.Organize.OutputDir) == "" {
		c.Organize.OutputDir = filepath.Join(c.Paths.RomsDir, defaultOutputSubdir)
		return nil
	}
	var err error
	if c.Organize.OutputDir, err = expandPath(c.Organize.OutputDir); err != nil {
		return fmt.Errorf("organize.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Dir != "" {
		var err error
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}
