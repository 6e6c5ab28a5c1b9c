package config

const (
	defaultConfigPath        = "~/.config/romsift/config.toml"
	projectConfigName        = "romsift.toml"
	defaultBaseURL           = "https://retroachievements.org/API"
	defaultUserAgent         = "romsift/dev"
	defaultTimeoutSeconds    = 30
	defaultConsoleID         = 2 // Nintendo 64
	defaultPageSize          = 100
	defaultPacingMillis      = 500
	defaultDataDir           = "./data"
	defaultFilePrefix        = "n64"
	defaultRomsDir           = "./roms"
	defaultLedgerPath        = "~/.local/share/romsift/ledger.db"
	defaultOutputSubdir      = "filtered"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultOverwriteExisting = false
	defaultCheckFreeSpace    = true
)

var (
	defaultBackoffSeconds = []int{30, 60, 90}
	defaultExtensions     = []string{".z64", ".n64", ".v64", ".zip"}
	defaultRegionPriority = []string{"France", "Europe", "USA"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		RetroAchievements: RetroAchievements{
			BaseURL:        defaultBaseURL,
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Fetch: Fetch{
			ConsoleID:            defaultConsoleID,
			PageSize:             defaultPageSize,
			PacingMillis:         defaultPacingMillis,
			BackoffSeconds:       append([]int(nil), defaultBackoffSeconds...),
			OnlyWithAchievements: true,
		},
		Paths: Paths{
			DataDir:    defaultDataDir,
			FilePrefix: defaultFilePrefix,
			RomsDir:    defaultRomsDir,
			LedgerPath: defaultLedgerPath,
		},
		Matching: Matching{
			Extensions:     append([]string(nil), defaultExtensions...),
			RegionPriority: append([]string(nil), defaultRegionPriority...),
		},
		Organize: Organize{
			OverwriteExisting: defaultOverwriteExisting,
			CheckFreeSpace:    defaultCheckFreeSpace,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
