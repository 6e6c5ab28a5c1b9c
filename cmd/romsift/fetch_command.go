package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var pageSize int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the console catalog and save it to the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			res, err := fetchCatalog(runCtx, ctx, cfg, logger, pageSize)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			writeSummary(out, "Catalog", fetchSummaryLines(res))
			fmt.Fprintf(out, "Saved %s and %s\n", cfg.CatalogPath(), cfg.LightCatalogPath())
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Games per list request (defaults to fetch.page_size)")
	return cmd
}
