package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"romsift/internal/services"
)

// ErrRunNotFound is returned when no run matches an id or prefix.
var ErrRunNotFound = errors.New("run not found")

const runColumns = "id, command, started_at, finished_at, roms_dir, output_dir, dry_run, scanned, matched, unmatched, excluded, failed, selected, written, already_present, error_message"

// Store persists the run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", "ledger path not configured", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "create directory", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path is the database file location.
func (s *Store) Path() string {
	return s.path
}

// RecordRun stores run and its entries in one transaction. A run without an
// id gets a fresh one, which is returned.
func (s *Store) RecordRun(ctx context.Context, run Run, entries []Entry) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.Command,
		formatTime(run.StartedAt),
		nullableTime(run.FinishedAt),
		nullableString(run.RomsDir),
		nullableString(run.OutputDir),
		boolToInt(run.DryRun),
		run.Scanned,
		run.Matched,
		run.Unmatched,
		run.Excluded,
		run.Failed,
		run.Selected,
		run.Written,
		run.AlreadyPresent,
		nullableString(run.Error),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO selections (
                run_id, game_id, title, source_path, checksum, region,
                alternatives, destination, outcome, error_message
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID.String(),
			e.GameID,
			e.Title,
			e.Source,
			e.Checksum,
			nullableString(e.Region),
			e.Alternatives,
			nullableString(e.Destination),
			e.Outcome,
			nullableString(e.Error),
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert selection %d: %w", e.GameID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id equals or starts with idPrefix.
func (s *Store) GetRun(ctx context.Context, idPrefix string) (Run, error) {
	idPrefix = strings.ToLower(strings.TrimSpace(idPrefix))
	if idPrefix == "" {
		return Run{}, services.Wrap(services.ErrValidation, "ledger", "get run", "run id is empty", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2",
		len(idPrefix), idPrefix,
	)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
		return found[0], nil
	default:
		return Run{}, services.Wrap(services.ErrValidation, "ledger", "get run",
			fmt.Sprintf("run id prefix %q is ambiguous", idPrefix), nil)
	}
}

// RunEntries returns the selections recorded for a run, ordered by title.
func (s *Store) RunEntries(ctx context.Context, id uuid.UUID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, title, source_path, checksum, region, alternatives,
                destination, outcome, error_message
           FROM selections WHERE run_id = ? ORDER BY title, game_id`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			region      sql.NullString
			destination sql.NullString
			errMessage  sql.NullString
		)
		if err := rows.Scan(&e.GameID, &e.Title, &e.Source, &e.Checksum, &region, &e.Alternatives,
			&destination, &e.Outcome, &errMessage); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		e.Region = region.String
		e.Destination = destination.String
		e.Error = errMessage.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes all but the keep most recent runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
        )`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
