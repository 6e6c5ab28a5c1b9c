package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		id          string
		startedRaw  string
		finishedRaw sql.NullString
		romsDir     sql.NullString
		outputDir   sql.NullString
		dryRun      int
		errMessage  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&run.Command,
		&startedRaw,
		&finishedRaw,
		&romsDir,
		&outputDir,
		&dryRun,
		&run.Scanned,
		&run.Matched,
		&run.Unmatched,
		&run.Excluded,
		&run.Failed,
		&run.Selected,
		&run.Written,
		&run.AlreadyPresent,
		&errMessage,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("parse run id %q: %w", id, err)
	}
	run.ID = parsed
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.RomsDir = romsDir.String
	run.OutputDir = outputDir.String
	run.DryRun = dryRun != 0
	run.Error = errMessage.String
	return run, nil
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
