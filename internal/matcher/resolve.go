package matcher

import "romsift/internal/catalog"

// Selection is the single file kept for one catalog record.
type Selection struct {
	RecordID int64
	Record   *catalog.Record
	Winner   Candidate
	// Alternatives are the losing candidates in scan order.
	Alternatives []Candidate
}

// Resolve groups matched candidates by record and keeps the best ranked
// candidate of each group; on equal rank the earlier candidate in the input
// order wins. Selections follow the order in which each record was first
// seen. Unmatched candidates are ignored. Resolve does not modify its input.
func Resolve(candidates []Candidate) []Selection {
	var order []int64
	groups := make(map[int64][]Candidate)
	for _, c := range candidates {
		if !c.Matched() {
			continue
		}
		id := c.Record.ID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], c)
	}

	selections := make([]Selection, 0, len(order))
	for _, id := range order {
		group := groups[id]
		best := 0
		for i := 1; i < len(group); i++ {
			if group[i].Rank > group[best].Rank {
				best = i
			}
		}
		alternatives := make([]Candidate, 0, len(group)-1)
		for i, c := range group {
			if i != best {
				alternatives = append(alternatives, c)
			}
		}
		selections = append(selections, Selection{
			RecordID:     id,
			Record:       group[best].Record,
			Winner:       group[best],
			Alternatives: alternatives,
		})
	}
	return selections
}

// Missing lists the indexed records without a selection, in index order.
func Missing(index *catalog.Index, selections []Selection) []*catalog.Record {
	found := make(map[int64]struct{}, len(selections))
	for _, s := range selections {
		found[s.RecordID] = struct{}{}
	}
	var missing []*catalog.Record
	for _, rec := range index.Records() {
		if _, ok := found[rec.ID]; !ok {
			missing = append(missing, rec)
		}
	}
	return missing
}
