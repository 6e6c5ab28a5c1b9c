package main

import (
	"github.com/spf13/cobra"

	"romsift/internal/catalog"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var opts organizeOptions
	var refetch bool

	cmd := &cobra.Command{
		Use:   "organize [dir]",
		Short: "Copy the preferred revision of every matched game into the output directory",
		Long: "Organize scans the ROM directory, matches files against the saved catalog, " +
			"keeps one file per game according to the region priority and copies it to the " +
			"output directory. Zip archives holding a single ROM are extracted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			opts.command = "organize"
			if err := opts.resolve(cfg, args); err != nil {
				return err
			}

			var index *catalog.Index
			if refetch {
				res, err := fetchCatalog(runCtx, ctx, cfg, logger, 0)
				if err != nil {
					return err
				}
				index = res.index
			} else if index, err = loadCatalog(cfg, logger); err != nil {
				return err
			}

			m := ctx.newMatcher(cfg, logger)
			hashed, err := m.Hash(runCtx, opts.romsDir)
			if err != nil {
				return err
			}
			return organizeCandidates(runCtx, cmd, ctx, cfg, logger, m, index, hashed, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Destination directory (defaults to organize.output_dir)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would be written without touching the output directory")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace destination files whose content differs")
	cmd.Flags().BoolVar(&refetch, "fetch", false, "Download a fresh catalog before organizing")
	return cmd
}
