package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"romsift/internal/catalog"
	"romsift/internal/config"
	"romsift/internal/ledger"
	"romsift/internal/logging"
	"romsift/internal/matcher"
	"romsift/internal/organizer"
	"romsift/internal/services"
)

// fetchResult is what one catalog retrieval produced.
type fetchResult struct {
	index *catalog.Index
	build catalog.BuildStats
	fetch catalog.FetchStats
}

// fetchCatalog retrieves the console catalog, builds the index and saves both
// catalog forms. Nothing is saved when the retrieval fails.
func fetchCatalog(ctx context.Context, env *commandContext, cfg *config.Config, logger *slog.Logger, pageSize int) (fetchResult, error) {
	if pageSize <= 0 {
		pageSize = cfg.Fetch.PageSize
	}
	fetcher, err := env.newFetcher(cfg, logger, catalog.WithPageCallback(func(offset, count int) {
		logger.Info("catalog page received", logging.Int("offset", offset), logging.Int("games", count))
	}))
	if err != nil {
		return fetchResult{}, err
	}

	var captured []catalog.RawRecord
	index, stats, err := catalog.Build(catalog.Capture(fetcher.Fetch(ctx, pageSize), &captured))
	if err != nil {
		return fetchResult{}, err
	}
	if err := catalog.SaveFull(cfg.CatalogPath(), captured); err != nil {
		return fetchResult{}, err
	}
	if err := catalog.SaveLight(cfg.LightCatalogPath(), captured); err != nil {
		return fetchResult{}, err
	}
	logger.Info("catalog saved",
		logging.String("full", cfg.CatalogPath()),
		logging.String("light", cfg.LightCatalogPath()),
		logging.Int("canonical_games", stats.Retained),
		logging.Int("checksums", stats.Checksums),
	)
	return fetchResult{index: index, build: stats, fetch: fetcher.Stats()}, nil
}

func loadCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Index, error) {
	index, stats, err := catalog.LoadLight(cfg.LightCatalogPath())
	if err != nil {
		return nil, err
	}
	logger.Debug("catalog loaded",
		logging.String(logging.FieldPath, cfg.LightCatalogPath()),
		logging.Int("games", stats.Retained),
		logging.Int("checksums", stats.Checksums),
	)
	return index, nil
}

func fetchSummaryLines(res fetchResult) []summaryLine {
	excluded := make([]string, 0, len(res.build.Excluded))
	for _, reason := range []catalog.ExclusionReason{
		catalog.ReasonTitleMarker,
		catalog.ReasonSubset,
		catalog.ReasonDerivative,
		catalog.ReasonNoAchievements,
	} {
		if n := res.build.Excluded[reason]; n > 0 {
			excluded = append(excluded, fmt.Sprintf("%s %d", strings.ReplaceAll(string(reason), "_", " "), n))
		}
	}
	excludedMsg := fmt.Sprintf("%d", res.build.ExcludedTotal())
	if len(excluded) > 0 {
		excludedMsg += " (" + strings.Join(excluded, ", ") + ")"
	}
	return []summaryLine{
		{label: "Games listed", kind: statusInfo, message: fmt.Sprintf("%d in %d pages", res.build.Total, res.fetch.Pages)},
		{label: "Canonical games", kind: statusOK, message: fmt.Sprintf("%d", res.build.Retained)},
		{label: "Excluded", kind: statusInfo, message: excludedMsg},
		{label: "Checksums", kind: statusOK, message: fmt.Sprintf("%d", res.build.Checksums)},
		{label: "Malformed hashes", kind: countKind(res.build.MalformedHashes), message: fmt.Sprintf("%d", res.build.MalformedHashes)},
		{label: "Requests", kind: statusInfo, message: fmt.Sprintf("%d", res.fetch.Requests)},
	}
}

// organizeOptions carries the command flags of organize and run.
type organizeOptions struct {
	command   string
	romsDir   string
	outputDir string
	dryRun    bool
	overwrite bool
	started   time.Time
}

func (o *organizeOptions) resolve(cfg *config.Config, args []string) error {
	if o.started.IsZero() {
		o.started = time.Now()
	}
	var err error
	if o.romsDir, err = romsDirArg(cfg, args); err != nil {
		return err
	}
	if strings.TrimSpace(o.outputDir) == "" {
		o.outputDir = cfg.Organize.OutputDir
		return nil
	}
	if o.outputDir, err = config.ExpandPath(o.outputDir); err != nil {
		return services.Wrap(services.ErrConfiguration, "organize", "resolve output", o.outputDir, err)
	}
	return nil
}

// romsDirArg returns the directory argument, or the configured one.
func romsDirArg(cfg *config.Config, args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return cfg.Paths.RomsDir, nil
	}
	dir, err := config.ExpandPath(strings.TrimSpace(args[0]))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "scan", "resolve directory", args[0], err)
	}
	return dir, nil
}

// organizeCandidates matches hashed candidates against index, resolves one
// selection per game, materializes them and records the run in the ledger.
func organizeCandidates(
	ctx context.Context,
	cmd *cobra.Command,
	env *commandContext,
	cfg *config.Config,
	logger *slog.Logger,
	m *matcher.Matcher,
	index *catalog.Index,
	hashed []matcher.Candidate,
	opts organizeOptions,
) error {
	matched := m.Match(hashed, index)
	selections := matcher.Resolve(matched)
	scan := matcher.Summarize(matched)

	results, matErr := env.newOrganizer(cfg, logger, opts).Materialize(ctx, selections)
	placed := organizer.Summarize(results)

	run := ledger.Run{
		ID:         env.runID,
		Command:    opts.command,
		StartedAt:  opts.started,
		FinishedAt: time.Now(),
		RomsDir:    opts.romsDir,
		OutputDir:  opts.outputDir,
		DryRun:     opts.dryRun,
	}
	run.ApplyScan(scan, len(selections))
	run.ApplyResults(placed)
	if matErr != nil {
		run.Error = matErr.Error()
	}
	recordRun(ctx, env, cfg, logger, run, ledger.EntriesFromResults(results))

	out := cmd.OutOrStdout()
	if len(results) > 0 {
		fmt.Fprintln(out, renderResultsTable(results))
	}
	title := "Organize"
	if opts.dryRun {
		title = "Organize (dry run)"
	}
	missing := matcher.Missing(index, selections)
	for _, rec := range missing {
		logger.Debug("catalog game without a local file",
			logging.Int64("game_id", rec.ID),
			logging.String("title", rec.Title),
		)
	}
	lines := append(scanSummaryLines(scan, len(selections)), organizeSummaryLines(placed, opts)...)
	lines = append(lines, summaryLine{label: "Missing games", kind: countKind(len(missing)), message: fmt.Sprintf("%d", len(missing))})
	writeSummary(out, title, lines)
	return matErr
}

func recordRun(ctx context.Context, env *commandContext, cfg *config.Config, logger *slog.Logger, run ledger.Run, entries []ledger.Entry) {
	store, err := env.openLedger(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from 'romsift history'"),
			logging.String(logging.FieldErrorHint, "check paths.ledger_path"),
		)
		return
	}
	defer store.Close()
	// Record even when the command was interrupted.
	if _, err := store.RecordRun(context.WithoutCancel(ctx), run, entries); err != nil {
		logging.WarnWithContext(logger, "failed to record run", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from 'romsift history'"),
		)
	}
}

func scanSummaryLines(s matcher.Summary, selected int) []summaryLine {
	return []summaryLine{
		{label: "Files scanned", kind: statusInfo, message: fmt.Sprintf("%d", s.Scanned)},
		{label: "Matched", kind: statusOK, message: fmt.Sprintf("%d", s.Matched)},
		{label: "Unmatched", kind: countKind(s.Unmatched), message: fmt.Sprintf("%d", s.Unmatched)},
		{label: "Excluded", kind: statusInfo, message: fmt.Sprintf("%d", s.Excluded)},
		{label: "Failed", kind: errorKind(s.Failed()), message: fmt.Sprintf("%d", s.Failed())},
		{label: "Selected", kind: statusOK, message: fmt.Sprintf("%d", selected)},
	}
}

func organizeSummaryLines(s organizer.Summary, opts organizeOptions) []summaryLine {
	if opts.dryRun {
		return []summaryLine{
			{label: "Would write", kind: statusInfo, message: fmt.Sprintf("%d to %s", s.Planned, opts.outputDir)},
			{label: "Already present", kind: statusOK, message: fmt.Sprintf("%d", s.AlreadyPresent)},
			{label: "Would fail", kind: errorKind(s.Failed), message: fmt.Sprintf("%d", s.Failed)},
		}
	}
	return []summaryLine{
		{label: "Written", kind: statusOK, message: fmt.Sprintf("%d (%s) to %s", s.Copied+s.Extracted, humanize.IBytes(uint64(s.Bytes)), opts.outputDir)},
		{label: "Already present", kind: statusOK, message: fmt.Sprintf("%d", s.AlreadyPresent)},
		{label: "Failed", kind: errorKind(s.Failed), message: fmt.Sprintf("%d", s.Failed)},
	}
}

func errorKind(n int) statusKind {
	if n > 0 {
		return statusError
	}
	return statusOK
}

func renderResultsTable(results []organizer.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		title := ""
		if r.Selection.Record != nil {
			title = r.Selection.Record.Title
		}
		detail := r.Selection.Winner.Name
		if r.Err != nil {
			detail = r.Err.Error()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Selection.RecordID),
			title,
			orDash(r.Selection.Winner.Region),
			fmt.Sprintf("%d", len(r.Selection.Alternatives)),
			displayLabel(string(r.Outcome)),
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Game", "Region", "Skipped", "Outcome", "File"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}
