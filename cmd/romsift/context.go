package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"romsift/internal/catalog"
	"romsift/internal/checksum"
	"romsift/internal/config"
	"romsift/internal/credentials"
	"romsift/internal/ledger"
	"romsift/internal/logging"
	"romsift/internal/matcher"
	"romsift/internal/organizer"
	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	username  string
	apiKey    string
}

type commandContext struct {
	flags *globalFlags
	stdin *os.File
	runID uuid.UUID

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	// computer is shared by the matcher and the organizer so a file is
	// hashed at most once per invocation.
	computer *checksum.Computer
}

func newCommandContext(flags *globalFlags, stdin *os.File) *commandContext {
	return &commandContext{
		flags:    flags,
		stdin:    stdin,
		runID:    uuid.New(),
		computer: checksum.New(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if v := strings.TrimSpace(c.flags.logLevel); v != "" {
			cfg.Logging.Level = strings.ToLower(v)
		}
		if v := strings.TrimSpace(c.flags.logFormat); v != "" {
			cfg.Logging.Format = strings.ToLower(v)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
			return
		}
		c.config, c.configPath, c.configExists = cfg, path, exists
	})
	return c.config, c.configErr
}

// commandLogger builds the logger of this invocation. Every line carries the
// run id and the command name. Output follows the command's stderr so tests
// can capture it; the real stderr also tees into the configured log file.
func (c *commandContext) commandLogger(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		runID := c.runID.String()
		var logger *slog.Logger
		if w := cmd.ErrOrStderr(); w == io.Writer(os.Stderr) {
			logger, err = logging.NewFromConfig(cfg, runID)
		} else {
			logger, err = logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				RunID:  runID,
				Writer: w,
			})
		}
		if err != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "logging", "init", "", err)
			return
		}
		c.logger = logger.With(logging.String("command", cmd.Name()))
	})
	return c.logger, c.loggerErr
}

// setup returns the config and logger and attaches the run id to ctx.
func (c *commandContext) setup(cmd *cobra.Command) (context.Context, *config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := c.commandLogger(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := services.WithRunID(cmd.Context(), c.runID.String())
	return ctx, cfg, logger, nil
}

// credentialProvider resolves credentials from flags, then the config file,
// then the environment, then an interactive prompt when stdin is a terminal.
func (c *commandContext) credentialProvider(cfg *config.Config) credentials.Provider {
	chain := credentials.Chain{
		credentials.Static{Username: strings.TrimSpace(c.flags.username), APIKey: strings.TrimSpace(c.flags.apiKey)},
		credentials.Static{Username: cfg.RetroAchievements.Username, APIKey: cfg.RetroAchievements.APIKey},
		credentials.NewEnv(),
	}
	if c.stdin != nil {
		chain = append(chain, &credentials.Prompt{In: c.stdin, Out: os.Stderr})
	}
	return chain
}

func (c *commandContext) newFetcher(cfg *config.Config, logger *slog.Logger, opts ...catalog.Option) (*catalog.Fetcher, error) {
	client, err := retroachievements.New(cfg.RetroAchievements.BaseURL,
		retroachievements.WithTimeout(cfg.RequestTimeout()),
		retroachievements.WithUserAgent(cfg.RetroAchievements.UserAgent),
		retroachievements.WithLogger(logger),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "retroachievements", "init client", "", err)
	}
	base := []catalog.Option{
		catalog.WithConsole(cfg.Fetch.ConsoleID),
		catalog.WithOnlyAchievements(cfg.Fetch.OnlyWithAchievements),
		catalog.WithPacing(cfg.PacingInterval()),
		catalog.WithBackoff(cfg.BackoffSchedule()),
		catalog.WithLogger(logger),
	}
	return catalog.NewFetcher(client, c.credentialProvider(cfg), append(base, opts...)...), nil
}

func (c *commandContext) newMatcher(cfg *config.Config, logger *slog.Logger) *matcher.Matcher {
	return matcher.New(
		matcher.WithExtensions(cfg.Matching.Extensions),
		matcher.WithRegionPriority(cfg.Matching.RegionPriority),
		matcher.WithRegionFromCatalog(cfg.Matching.RegionFromCatalog),
		matcher.WithComputer(c.computer),
		matcher.WithLogger(logger),
	)
}

func (c *commandContext) newOrganizer(cfg *config.Config, logger *slog.Logger, opts organizeOptions) *organizer.Organizer {
	return organizer.New(opts.outputDir,
		organizer.WithOverwrite(cfg.Organize.OverwriteExisting || opts.overwrite),
		organizer.WithFreeSpaceCheck(cfg.Organize.CheckFreeSpace),
		organizer.WithDryRun(opts.dryRun),
		organizer.WithComputer(c.computer),
		organizer.WithLogger(logger),
	)
}

func (c *commandContext) openLedger(cfg *config.Config) (*ledger.Store, error) {
	return ledger.Open(cfg.Paths.LedgerPath)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
