package catalog

import (
	"iter"
	"strings"
)

// BuildStats summarizes one Build.
type BuildStats struct {
	Total            int
	Retained         int
	Excluded         map[ExclusionReason]int
	Checksums        int
	MalformedHashes  int
	ExcludedOnlySums int
	// Repeated counts records whose id was already seen; only the first is kept.
	Repeated int
}

// ExcludedTotal sums every exclusion reason.
func (s BuildStats) ExcludedTotal() int {
	n := 0
	for _, v := range s.Excluded {
		n += v
	}
	return n
}

// Build consumes seq and returns the index of canonical games. Any error
// yielded by seq aborts the build and is returned unchanged; no partial
// index is ever returned.
func Build(seq iter.Seq2[RawRecord, error]) (*Index, BuildStats, error) {
	b := newBuilder()
	for raw, err := range seq {
		if err != nil {
			return nil, b.stats, err
		}
		if err := b.add(raw); err != nil {
			return nil, b.stats, err
		}
	}
	return b.finish(), b.stats, nil
}

type builder struct {
	index *Index
	stats BuildStats
	seen  map[int64]struct{}
}

func newBuilder() *builder {
	return &builder{
		index: newIndex(),
		stats: BuildStats{Excluded: make(map[ExclusionReason]int)},
		seen:  make(map[int64]struct{}),
	}
}

func (b *builder) add(raw RawRecord) error {
	if _, dup := b.seen[raw.ID]; dup {
		b.stats.Repeated++
		return nil
	}
	b.seen[raw.ID] = struct{}{}
	b.stats.Total++
	if reason := Classify(raw); reason != ReasonNone {
		b.stats.Excluded[reason]++
		for _, h := range raw.Hashes {
			if sum, ok := NormalizeChecksum(h.MD5); ok {
				if _, seen := b.index.excluded[sum]; !seen {
					b.index.excluded[sum] = raw.ID
				}
			}
		}
		return nil
	}

	rec := &Record{
		ID:          raw.ID,
		Title:       strings.TrimSpace(raw.Title),
		ConsoleID:   raw.ConsoleID,
		ConsoleName: raw.ConsoleName,
		Labels:      make(map[string]string, len(raw.Hashes)),
	}
	for _, h := range raw.Hashes {
		sum, ok := NormalizeChecksum(h.MD5)
		if !ok {
			b.stats.MalformedHashes++
			continue
		}
		if _, dup := rec.Labels[sum]; dup {
			continue
		}
		if owner, taken := b.index.byChecksum[sum]; taken && owner.ID != rec.ID {
			return &DuplicateChecksumError{Checksum: sum, FirstID: owner.ID, SecondID: rec.ID}
		}
		rec.Labels[sum] = h.Name
		rec.Checksums = append(rec.Checksums, sum)
		b.index.byChecksum[sum] = rec
	}
	b.index.records = append(b.index.records, rec)
	b.stats.Retained++
	return nil
}

func (b *builder) finish() *Index {
	for sum := range b.index.excluded {
		if _, canonical := b.index.byChecksum[sum]; canonical {
			delete(b.index.excluded, sum)
		}
	}
	b.stats.Checksums = len(b.index.byChecksum)
	b.stats.ExcludedOnlySums = len(b.index.excluded)
	return b.index
}

// NormalizeChecksum uppercases sum and reports whether it is 32 hex digits.
func NormalizeChecksum(sum string) (string, bool) {
	sum = strings.ToUpper(strings.TrimSpace(sum))
	if len(sum) != 32 {
		return "", false
	}
	for i := 0; i < len(sum); i++ {
		c := sum[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return "", false
		}
	}
	return sum, true
}
