package ledger

import (
	"time"

	"github.com/google/uuid"

	"romsift/internal/matcher"
	"romsift/internal/organizer"
)

// Run is one recorded invocation.
type Run struct {
	ID         uuid.UUID
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
	RomsDir    string
	OutputDir  string
	DryRun     bool

	Scanned        int
	Matched        int
	Unmatched      int
	Excluded       int
	Failed         int
	Selected       int
	Written        int
	AlreadyPresent int

	// Error is the message of the failure that ended the run, if any.
	Error string
}

// Duration is the wall time of the run, or zero while unfinished.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Entry is one materialized selection of a run.
type Entry struct {
	GameID       int64
	Title        string
	Source       string
	Checksum     string
	Region       string
	Alternatives int
	Destination  string
	Outcome      string
	Error        string
}

// ApplyScan copies the scan counts into the run.
func (r *Run) ApplyScan(s matcher.Summary, selected int) {
	r.Scanned = s.Scanned
	r.Matched = s.Matched
	r.Unmatched = s.Unmatched
	r.Excluded = s.Excluded
	r.Failed = s.Failed()
	r.Selected = selected
}

// ApplyResults copies the materialization counts into the run.
func (r *Run) ApplyResults(s organizer.Summary) {
	r.Written = s.Copied + s.Extracted
	r.AlreadyPresent = s.AlreadyPresent
}

// EntriesFromResults converts organizer results into ledger entries.
func EntriesFromResults(results []organizer.Result) []Entry {
	entries := make([]Entry, 0, len(results))
	for _, res := range results {
		sel := res.Selection
		e := Entry{
			GameID:       sel.RecordID,
			Source:       sel.Winner.Path,
			Checksum:     sel.Winner.Checksum,
			Region:       sel.Winner.Region,
			Alternatives: len(sel.Alternatives),
			Destination:  res.Destination,
			Outcome:      string(res.Outcome),
		}
		if sel.Record != nil {
			e.Title = sel.Record.Title
		}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		entries = append(entries, e)
	}
	return entries
}
