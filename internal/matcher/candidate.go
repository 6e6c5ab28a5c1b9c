package matcher

import "romsift/internal/catalog"

// Status classifies a scanned file.
type Status string

const (
	StatusMatched     Status = "matched"
	StatusUnmatched   Status = "unmatched"
	StatusExcluded    Status = "excluded"
	StatusUnreadable  Status = "unreadable"
	StatusUnsupported Status = "unsupported"
	// StatusHashed is the transient state between Hash and Match.
	StatusHashed Status = "hashed"
)

// Candidate is one local file considered for matching.
type Candidate struct {
	Path     string
	Name     string
	Size     int64
	Checksum string
	Region   string
	// Rank orders regions; higher is preferred.
	Rank int
	// Record is nil unless Status is StatusMatched.
	Record *catalog.Record
	// ExcludedID is the non-canonical game owning Checksum when Status is
	// StatusExcluded.
	ExcludedID int64
	Status     Status
	Err        error
	// Position is the index of the file in scan order.
	Position int
}

// Matched reports whether the candidate resolved to a canonical record.
func (c Candidate) Matched() bool {
	return c.Status == StatusMatched && c.Record != nil
}

// Summary counts candidates by status.
type Summary struct {
	Scanned     int
	Matched     int
	Unmatched   int
	Excluded    int
	Unreadable  int
	Unsupported int
}

// Failed is the number of files that could not be hashed.
func (s Summary) Failed() int {
	return s.Unreadable + s.Unsupported
}

// Summarize counts candidates by status.
func Summarize(candidates []Candidate) Summary {
	s := Summary{Scanned: len(candidates)}
	for _, c := range candidates {
		switch c.Status {
		case StatusMatched:
			s.Matched++
		case StatusExcluded:
			s.Excluded++
		case StatusUnreadable:
			s.Unreadable++
		case StatusUnsupported:
			s.Unsupported++
		default:
			s.Unmatched++
		}
	}
	return s
}
