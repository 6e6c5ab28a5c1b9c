package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"romsift/internal/ledger"
)

type runView struct {
	ID             string    `json:"id"`
	Command        string    `json:"command"`
	StartedAt      time.Time `json:"started_at"`
	Duration       string    `json:"duration"`
	RomsDir        string    `json:"roms_dir"`
	OutputDir      string    `json:"output_dir"`
	DryRun         bool      `json:"dry_run"`
	Scanned        int       `json:"scanned"`
	Matched        int       `json:"matched"`
	Selected       int       `json:"selected"`
	Written        int       `json:"written"`
	AlreadyPresent int       `json:"already_present"`
	Failed         int       `json:"failed"`
	Error          string    `json:"error,omitempty"`
}

func newRunView(run ledger.Run) runView {
	return runView{
		ID:             run.ID.String(),
		Command:        run.Command,
		StartedAt:      run.StartedAt,
		Duration:       run.Duration().Round(time.Millisecond).String(),
		RomsDir:        run.RomsDir,
		OutputDir:      run.OutputDir,
		DryRun:         run.DryRun,
		Scanned:        run.Scanned,
		Matched:        run.Matched,
		Selected:       run.Selected,
		Written:        run.Written,
		AlreadyPresent: run.AlreadyPresent,
		Failed:         run.Failed,
		Error:          run.Error,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous organize and run invocations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, _, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(runCtx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run))
				}
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				mode := displayLabel(run.Command)
				if run.DryRun {
					mode += " (dry run)"
				}
				status := "OK"
				if run.Error != "" {
					status = "Error"
				}
				rows = append(rows, []string{
					run.ID.String()[:8],
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					mode,
					fmt.Sprintf("%d", run.Scanned),
					fmt.Sprintf("%d", run.Selected),
					fmt.Sprintf("%d", run.Written),
					fmt.Sprintf("%d", run.Failed),
					status,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Command", "Scanned", "Selected", "Written", "Failed", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the selections of one run (an id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, _, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(runCtx, args[0])
			if err != nil {
				return err
			}
			entries, err := store.RunEntries(runCtx, run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			view := newRunView(run)
			lines := []summaryLine{
				{label: "Command", kind: statusInfo, message: view.Command},
				{label: "Started", kind: statusInfo, message: run.StartedAt.Local().Format(time.RFC3339)},
				{label: "Duration", kind: statusInfo, message: view.Duration},
				{label: "ROM directory", kind: statusInfo, message: orDash(run.RomsDir)},
				{label: "Output", kind: statusInfo, message: orDash(run.OutputDir)},
				{label: "Written", kind: statusOK, message: fmt.Sprintf("%d", run.Written)},
				{label: "Already present", kind: statusOK, message: fmt.Sprintf("%d", run.AlreadyPresent)},
			}
			if run.Error != "" {
				lines = append(lines, summaryLine{label: "Error", kind: statusError, message: run.Error})
			}
			writeSummary(out, "Run "+view.ID, lines)
			if len(entries) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				detail := e.Destination
				if e.Error != "" {
					detail = e.Error
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", e.GameID),
					e.Title,
					orDash(e.Region),
					displayLabel(e.Outcome),
					orDash(detail),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Game", "Region", "Outcome", "Destination"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(runCtx, keep)
			if err != nil {
				return err
			}
			logger.Debug("ledger pruned", "removed", removed, "kept", keep)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 50, "Number of recent runs to keep")
	return cmd
}
