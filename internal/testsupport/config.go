package testsupport

import (
	"path/filepath"
	"testing"

	"romsift/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.RetroAchievements.BaseURL = "http://127.0.0.1:0/API"
	cfgVal.Fetch.PacingMillis = 1
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.RomsDir = filepath.Join(base, "roms")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "ledger.db")
	cfgVal.Organize.OutputDir = filepath.Join(base, "roms", "filtered")
	cfgVal.Organize.CheckFreeSpace = false
	cfgVal.Logging.Dir = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithServer points the API client at a test server.
func WithServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RetroAchievements.BaseURL = baseURL
	}
}

// WithCredentials sets the configured username and API key.
func WithCredentials(username, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RetroAchievements.Username = username
		b.cfg.RetroAchievements.APIKey = apiKey
	}
}

// WithOverwrite enables replacing differing files in the output directory.
func WithOverwrite() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organize.OverwriteExisting = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RomsDir)
}
