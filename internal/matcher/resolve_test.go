package matcher_test

import (
	"reflect"
	"testing"

	"romsift/internal/catalog"
	"romsift/internal/matcher"
)

type named struct {
	name string
	rec  *catalog.Record
}

func candidatesFor(table *matcher.RegionTable, files ...named) []matcher.Candidate {
	out := make([]matcher.Candidate, 0, len(files))
	for i, s := range files {
		c := matcher.Candidate{Name: s.name, Path: "/roms/" + s.name, Position: i, Status: matcher.StatusUnmatched}
		c.Region, c.Rank = table.Tag(s.name)
		if s.rec != nil {
			c.Record = s.rec
			c.Status = matcher.StatusMatched
		}
		out = append(out, c)
	}
	return out
}

func TestResolvePicksHighestPriorityPerRecord(t *testing.T) {
	mario := &catalog.Record{ID: 1, Title: "Mario"}
	zelda := &catalog.Record{ID: 2, Title: "Zelda"}
	table := matcher.NewRegionTable(nil)
	candidates := candidatesFor(table,
		named{"Zelda (Japan).z64", zelda},
		named{"Mario (USA).z64", mario},
		named{"Mario.z64", mario},
		named{"stray.z64", nil},
		named{"Mario (Europe).z64", mario},
		named{"Zelda (USA).z64", zelda},
		named{"Mario (Japan).z64", mario},
	)

	selections := matcher.Resolve(candidates)
	if len(selections) != 2 {
		t.Fatalf("expected one selection per record, got %d", len(selections))
	}
	if selections[0].RecordID != 2 || selections[1].RecordID != 1 {
		t.Fatalf("expected selections in first-seen order, got %d then %d", selections[0].RecordID, selections[1].RecordID)
	}
	if selections[0].Winner.Name != "Zelda (USA).z64" {
		t.Fatalf("unexpected zelda winner %s", selections[0].Winner.Name)
	}
	if selections[1].Winner.Name != "Mario (Europe).z64" {
		t.Fatalf("unexpected mario winner %s", selections[1].Winner.Name)
	}
	if len(selections[1].Alternatives) != 3 {
		t.Fatalf("expected 3 alternatives, got %d", len(selections[1].Alternatives))
	}
	for _, sel := range selections {
		for _, alt := range sel.Alternatives {
			if alt.Rank > sel.Winner.Rank {
				t.Fatalf("alternative %s outranks winner %s", alt.Name, sel.Winner.Name)
			}
		}
	}
}

func TestResolveFranceBeatsEverything(t *testing.T) {
	mario := &catalog.Record{ID: 1}
	candidates := candidatesFor(matcher.NewRegionTable(nil),
		named{"Mario (Europe).z64", mario},
		named{"Mario (USA).z64", mario},
		named{"Mario (Europe) (En,Fr,De).z64", mario},
	)
	selections := matcher.Resolve(candidates)
	if selections[0].Winner.Name != "Mario (Europe) (En,Fr,De).z64" {
		t.Fatalf("unexpected winner %s", selections[0].Winner.Name)
	}
}

func TestResolveTieBreaksByScanOrder(t *testing.T) {
	mario := &catalog.Record{ID: 1}
	table := matcher.NewRegionTable(nil)
	europe := candidatesFor(table,
		named{"Mario (Europe) (Rev A).z64", mario},
		named{"Mario (Europe).z64", mario},
	)
	if got := matcher.Resolve(europe)[0].Winner.Name; got != "Mario (Europe) (Rev A).z64" {
		t.Fatalf("expected first Europe candidate, got %s", got)
	}

	others := candidatesFor(table,
		named{"Mario (Japan).z64", mario},
		named{"Mario (Germany).z64", mario},
	)
	if got := matcher.Resolve(others)[0].Winner.Name; got != "Mario (Japan).z64" {
		t.Fatalf("expected first equal-rank candidate, got %s", got)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	mario := &catalog.Record{ID: 1}
	zelda := &catalog.Record{ID: 2}
	candidates := candidatesFor(matcher.NewRegionTable(nil),
		named{"Mario (USA).z64", mario},
		named{"Zelda.z64", zelda},
		named{"Mario (Europe).z64", mario},
	)
	before := append([]matcher.Candidate(nil), candidates...)
	first := matcher.Resolve(candidates)
	second := matcher.Resolve(candidates)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical selections on repeated resolve")
	}
	if !reflect.DeepEqual(before, candidates) {
		t.Fatal("expected input to be left untouched")
	}
}

func TestResolveIgnoresUnmatched(t *testing.T) {
	candidates := candidatesFor(matcher.NewRegionTable(nil), named{"a.z64", nil}, named{"b.z64", nil})
	if got := matcher.Resolve(candidates); len(got) != 0 {
		t.Fatalf("expected no selections, got %d", len(got))
	}
}

func TestMissingListsRecordsWithoutSelection(t *testing.T) {
	index := buildIndex(t,
		game{id: 1, title: "Mario", labels: map[string]string{sumOf("m"): "Mario"}},
		game{id: 2, title: "Zelda", labels: map[string]string{sumOf("z"): "Zelda"}},
	)
	mario, _ := index.Lookup(sumOf("m"))
	selections := matcher.Resolve([]matcher.Candidate{{Record: mario, Status: matcher.StatusMatched}})
	missing := matcher.Missing(index, selections)
	if len(missing) != 1 || missing[0].ID != 2 {
		t.Fatalf("unexpected missing records %v", missing)
	}
}
