package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// RetroAchievements holds the remote API connection settings. Username and
// APIKey may stay empty here; the credential chain also consults the
// environment and an interactive prompt.
type RetroAchievements struct {
	BaseURL        string `toml:"base_url"`
	Username       string `toml:"username"`
	APIKey         string `toml:"api_key"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Fetch controls catalog retrieval.
type Fetch struct {
	ConsoleID            int   `toml:"console_id"`
	PageSize             int   `toml:"page_size"`
	PacingMillis         int   `toml:"pacing_ms"`
	BackoffSeconds       []int `toml:"backoff_seconds"`
	OnlyWithAchievements bool  `toml:"only_with_achievements"`
}

// Paths contains file and directory locations.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	FilePrefix string `toml:"file_prefix"`
	RomsDir    string `toml:"roms_dir"`
	LedgerPath string `toml:"ledger_path"`
}

// Matching controls the local scan and region resolution.
type Matching struct {
	Extensions     []string `toml:"extensions"`
	RegionPriority []string `toml:"region_priority"`
	// RegionFromCatalog falls back to the catalog's hash label when a file
	// name carries no recognizable region.
	RegionFromCatalog bool `toml:"region_from_catalog"`
}

// Organize controls the materializer.
type Organize struct {
	OutputDir         string `toml:"output_dir"`
	OverwriteExisting bool   `toml:"overwrite_existing"`
	CheckFreeSpace    bool   `toml:"check_free_space"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for romsift.
type Config struct {
	RetroAchievements RetroAchievements `toml:"retroachievements"`
	Fetch             Fetch             `toml:"fetch"`
	Paths             Paths             `toml:"paths"`
	Matching          Matching          `toml:"matching"`
	Organize          Organize          `toml:"organize"`
	Logging           Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and defaults applied. The second
// return value is the resolved path, the third reports whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// CatalogPath is the full-form catalog file.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, c.Paths.FilePrefix+"_games_data.json")
}

// LightCatalogPath is the light-form catalog file consumed by organize.
func (c *Config) LightCatalogPath() string {
	return filepath.Join(c.Paths.DataDir, c.Paths.FilePrefix+"_games_data_light.json")
}

// RequestTimeout is the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RetroAchievements.TimeoutSeconds) * time.Second
}

// PacingInterval is the minimum delay between two remote requests.
func (c *Config) PacingInterval() time.Duration {
	return time.Duration(c.Fetch.PacingMillis) * time.Millisecond
}

// BackoffSchedule lists the waits applied after successive throttled responses.
func (c *Config) BackoffSchedule() []time.Duration {
	out := make([]time.Duration, 0, len(c.Fetch.BackoffSeconds))
	for _, s := range c.Fetch.BackoffSeconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// Encode renders the effective configuration as TOML. The API key is masked.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	if clone.RetroAchievements.APIKey != "" {
		clone.RetroAchievements.APIKey = "********"
	}
	return toml.Marshal(clone)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for flag values.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
