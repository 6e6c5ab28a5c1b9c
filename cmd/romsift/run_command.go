package main

import (
	"context"

	"github.com/spf13/cobra"

	"romsift/internal/matcher"
)

type hashOutcome struct {
	candidates []matcher.Candidate
	err        error
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts organizeOptions
	var pageSize int

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Fetch the catalog, then match and organize in one pass",
		Long: "Run downloads the catalog while hashing the local files in parallel, then " +
			"matches, resolves and organizes exactly like 'romsift organize'.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			opts.command = "run"
			if err := opts.resolve(cfg, args); err != nil {
				return err
			}

			m := ctx.newMatcher(cfg, logger)
			hashCtx, cancelHash := context.WithCancel(runCtx)
			defer cancelHash()
			hashed := make(chan hashOutcome, 1)
			go func() {
				candidates, err := m.Hash(hashCtx, opts.romsDir)
				hashed <- hashOutcome{candidates: candidates, err: err}
			}()

			res, fetchErr := fetchCatalog(runCtx, ctx, cfg, logger, pageSize)
			if fetchErr != nil {
				cancelHash()
			}
			h := <-hashed
			if fetchErr != nil {
				return fetchErr
			}
			if h.err != nil {
				return h.err
			}
			writeSummary(cmd.OutOrStdout(), "Catalog", fetchSummaryLines(res))
			return organizeCandidates(runCtx, cmd, ctx, cfg, logger, m, res.index, h.candidates, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Destination directory (defaults to organize.output_dir)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would be written without touching the output directory")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace destination files whose content differs")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Games per list request (defaults to fetch.page_size)")
	return cmd
}
