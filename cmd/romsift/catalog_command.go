package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var search string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the canonical games of the saved catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, logger, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			index, err := loadCatalog(cfg, logger)
			if err != nil {
				return err
			}

			records := index.Records()
			if needle := strings.TrimSpace(search); needle != "" {
				folded := cases.Fold().String(needle)
				kept := records[:0]
				for _, rec := range records {
					if strings.Contains(cases.Fold().String(rec.Title), folded) {
						kept = append(kept, rec)
					}
				}
				records = kept
			}
			if asJSON {
				return writeJSON(cmd, recordsView(records))
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{fmt.Sprintf("%d", rec.ID), rec.Title, fmt.Sprintf("%d", len(rec.Checksums))})
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No games found")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Game", "Revisions"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
			fmt.Fprintf(out, "%d games\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Only list games whose title contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
