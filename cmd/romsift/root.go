package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	// stdin backs the credential prompt; nil disables prompting.
	stdin *os.File
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(rootOptions{stdin: os.Stdin})
}

func buildRootCommand(opts rootOptions) *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags, opts.stdin)

	rootCmd := &cobra.Command{
		Use:           "romsift",
		Short:         "Match ROM files against the RetroAchievements catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Override logging.format (console, json)")
	pf.StringVar(&flags.username, "username", "", "RetroAchievements username")
	pf.StringVar(&flags.apiKey, "api-key", "", "RetroAchievements web API key")

	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newOrganizeCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
