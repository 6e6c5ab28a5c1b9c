package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"romsift/internal/catalog"
	"romsift/internal/matcher"
)

type candidateView struct {
	File     string `json:"file"`
	Status   string `json:"status"`
	Region   string `json:"region,omitempty"`
	Checksum string `json:"checksum,omitempty"`
	GameID   int64  `json:"game_id,omitempty"`
	Game     string `json:"game,omitempty"`
	Error    string `json:"error,omitempty"`
}

type selectionView struct {
	GameID       int64    `json:"game_id"`
	Game         string   `json:"game"`
	File         string   `json:"file"`
	Region       string   `json:"region,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type gameView struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type scanReport struct {
	Directory  string          `json:"directory"`
	Candidates []candidateView `json:"candidates"`
	Selections []selectionView `json:"selections"`
	Missing    []gameView      `json:"missing,omitempty"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var showMissing bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Match local files against the saved catalog without writing anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cfg, logger, err := ctx.setup(cmd)
			if err != nil {
				return err
			}
			dir, err := romsDirArg(cfg, args)
			if err != nil {
				return err
			}
			index, err := loadCatalog(cfg, logger)
			if err != nil {
				return err
			}
			candidates, err := ctx.newMatcher(cfg, logger).Scan(runCtx, dir, index)
			if err != nil {
				return err
			}
			selections := matcher.Resolve(candidates)
			report := buildScanReport(dir, candidates, selections)
			if showMissing {
				for _, rec := range matcher.Missing(index, selections) {
					report.Missing = append(report.Missing, gameView{ID: rec.ID, Title: rec.Title})
				}
			}
			if asJSON {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			if len(candidates) > 0 {
				fmt.Fprintln(out, renderCandidatesTable(report.Candidates))
			}
			if showMissing && len(report.Missing) > 0 {
				fmt.Fprintln(out, renderGamesTable(report.Missing))
			}
			lines := scanSummaryLines(matcher.Summarize(candidates), len(selections))
			if showMissing {
				lines = append(lines, summaryLine{label: "Missing games", kind: countKind(len(report.Missing)), message: fmt.Sprintf("%d", len(report.Missing))})
			}
			writeSummary(out, "Scan of "+dir, lines)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMissing, "missing", false, "Also list catalog games with no matching file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func buildScanReport(dir string, candidates []matcher.Candidate, selections []matcher.Selection) scanReport {
	report := scanReport{
		Directory:  dir,
		Candidates: make([]candidateView, 0, len(candidates)),
		Selections: make([]selectionView, 0, len(selections)),
	}
	for _, c := range candidates {
		v := candidateView{File: c.Name, Status: string(c.Status), Region: c.Region, Checksum: c.Checksum}
		if c.Record != nil {
			v.GameID, v.Game = c.Record.ID, c.Record.Title
		} else if c.ExcludedID != 0 {
			v.GameID = c.ExcludedID
		}
		if c.Err != nil {
			v.Error = c.Err.Error()
		}
		report.Candidates = append(report.Candidates, v)
	}
	for _, s := range selections {
		v := selectionView{GameID: s.RecordID, File: s.Winner.Name, Region: s.Winner.Region}
		if s.Record != nil {
			v.Game = s.Record.Title
		}
		for _, alt := range s.Alternatives {
			v.Alternatives = append(v.Alternatives, alt.Name)
		}
		report.Selections = append(report.Selections, v)
	}
	return report
}

func renderCandidatesTable(views []candidateView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		game := v.Game
		if v.Error != "" {
			game = v.Error
		} else if game == "" && v.GameID != 0 {
			game = fmt.Sprintf("game %d", v.GameID)
		}
		rows = append(rows, []string{v.File, displayLabel(v.Status), orDash(v.Region), orDash(game)})
	}
	return renderTable([]string{"File", "Status", "Region", "Game"}, rows, nil)
}

func renderGamesTable(games []gameView) string {
	rows := make([][]string, 0, len(games))
	for _, g := range games {
		rows = append(rows, []string{fmt.Sprintf("%d", g.ID), g.Title})
	}
	return renderTable([]string{"ID", "Missing game"}, rows, []columnAlignment{alignRight, alignLeft})
}

// recordsView lists catalog records for display.
func recordsView(records []*catalog.Record) []gameView {
	out := make([]gameView, 0, len(records))
	for _, rec := range records {
		out = append(out, gameView{ID: rec.ID, Title: rec.Title})
	}
	return out
}
