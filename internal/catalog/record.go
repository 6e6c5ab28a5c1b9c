package catalog

import (
	"encoding/json"
	"strings"

	"romsift/internal/retroachievements"
)

// RawRecord is one game as returned by the remote API.
type RawRecord struct {
	ID              int64
	Title           string
	ConsoleID       int
	ConsoleName     string
	NumAchievements int
	ParentGameID    *int64
	// Info is the verbatim extended payload. It is nil when the fetcher
	// skipped the detail requests for a title already known to be excluded.
	Info   json.RawMessage
	Hashes []retroachievements.Hash
}

// DetailsSkipped reports whether the extended record and hashes were not fetched.
func (r RawRecord) DetailsSkipped() bool {
	return r.Info == nil
}

// ExclusionReason names why a game is not canonical.
type ExclusionReason string

const (
	ReasonNone           ExclusionReason = ""
	ReasonTitleMarker    ExclusionReason = "title_marker"
	ReasonSubset         ExclusionReason = "subset"
	ReasonDerivative     ExclusionReason = "derivative"
	ReasonNoAchievements ExclusionReason = "no_achievements"
)

// titleExclusion classifies a game from its title alone. Titles starting
// with "~" (~Hack~, ~Homebrew~, ~Prototype~, ~Unlicensed~) and subset
// entries are never canonical.
func titleExclusion(title string) ExclusionReason {
	trimmed := strings.TrimSpace(title)
	switch {
	case strings.HasPrefix(trimmed, "~"):
		return ReasonTitleMarker
	case strings.Contains(trimmed, "[Subset"):
		return ReasonSubset
	default:
		return ReasonNone
	}
}

// Classify returns the reason r is excluded, or ReasonNone for a canonical game.
func Classify(r RawRecord) ExclusionReason {
	if reason := titleExclusion(r.Title); reason != ReasonNone {
		return reason
	}
	if r.ParentGameID != nil {
		return ReasonDerivative
	}
	if r.NumAchievements <= 0 {
		return ReasonNoAchievements
	}
	return ReasonNone
}

// Record is a canonical catalog entry. It is immutable once built.
type Record struct {
	ID          int64
	Title       string
	ConsoleID   int
	ConsoleName string
	// Checksums lists the normalized checksums in catalog order.
	Checksums []string
	// Labels maps a checksum to the catalog's name for that revision, for
	// example "Super Mario 64 (Europe) (En,Fr,De)".
	Labels map[string]string
}

// HasChecksum reports whether sum belongs to r.
func (r *Record) HasChecksum(sum string) bool {
	_, ok := r.Labels[sum]
	return ok
}

// Index maps checksums to canonical records. It is read-only after Build.
type Index struct {
	byChecksum map[string]*Record
	records    []*Record
	excluded   map[string]int64
}

func newIndex() *Index {
	return &Index{
		byChecksum: make(map[string]*Record),
		excluded:   make(map[string]int64),
	}
}

// Lookup returns the canonical record owning sum.
func (ix *Index) Lookup(sum string) (*Record, bool) {
	if ix == nil {
		return nil, false
	}
	rec, ok := ix.byChecksum[strings.ToUpper(sum)]
	return rec, ok
}

// ExcludedOwner returns the id of a non-canonical game listing sum when no
// canonical game does.
func (ix *Index) ExcludedOwner(sum string) (int64, bool) {
	if ix == nil {
		return 0, false
	}
	sum = strings.ToUpper(sum)
	if _, ok := ix.byChecksum[sum]; ok {
		return 0, false
	}
	id, ok := ix.excluded[sum]
	return id, ok
}

// Records returns the canonical records in the order they were built.
func (ix *Index) Records() []*Record {
	if ix == nil {
		return nil
	}
	return append([]*Record(nil), ix.records...)
}

// Len is the number of indexed checksums.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.byChecksum)
}
