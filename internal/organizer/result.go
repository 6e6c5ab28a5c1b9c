package organizer

import "romsift/internal/matcher"

// Outcome describes what happened to one selection.
type Outcome string

const (
	OutcomeCopied         Outcome = "copied"
	OutcomeExtracted      Outcome = "extracted"
	OutcomeAlreadyPresent Outcome = "already_present"
	OutcomePlanned        Outcome = "planned"
	OutcomeFailed         Outcome = "failed"
)

// Result reports the materialization of one selection.
type Result struct {
	Selection   matcher.Selection
	Destination string
	Outcome     Outcome
	Bytes       int64
	// Replaced is set when a differing file at Destination was overwritten,
	// or would be in a dry run.
	Replaced bool
	Err      error
}

// Written reports whether the pass wrote the destination.
func (r Result) Written() bool {
	return r.Outcome == OutcomeCopied || r.Outcome == OutcomeExtracted
}

// Summary counts results by outcome.
type Summary struct {
	Copied         int
	Extracted      int
	AlreadyPresent int
	Planned        int
	Failed         int
	Bytes          int64
}

// Summarize counts results by outcome.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCopied:
			s.Copied++
		case OutcomeExtracted:
			s.Extracted++
		case OutcomeAlreadyPresent:
			s.AlreadyPresent++
		case OutcomePlanned:
			s.Planned++
		default:
			s.Failed++
		}
		s.Bytes += r.Bytes
	}
	return s
}
