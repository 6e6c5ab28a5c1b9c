package matcher

import (
	"strings"

	"golang.org/x/text/cases"
)

// regionVocabulary lists every recognized region with the file name tokens
// that identify it. Both No-Intro style names and GoodTools codes appear.
// Order only matters among regions of equal rank.
var regionVocabulary = []Region{
	{Name: "France", Tokens: []string{"(France)", "(France,", ", France)", "(Fr)", "(Fr,", ",Fr", "(F)"}},
	{Name: "Europe", Tokens: []string{"(Europe)", "(Europe,", ", Europe)", "(E)", "(EU)"}},
	{Name: "USA", Tokens: []string{"(USA)", "(USA,", ", USA)", "(U)"}},
	{Name: "Japan", Tokens: []string{"(Japan)", "(Japan,", ", Japan)", "(J)"}},
	{Name: "Germany", Tokens: []string{"(Germany)", "(G)"}},
	{Name: "Spain", Tokens: []string{"(Spain)", "(S)"}},
	{Name: "Italy", Tokens: []string{"(Italy)", "(I)"}},
	{Name: "Netherlands", Tokens: []string{"(Netherlands)", "(H)"}},
	{Name: "Sweden", Tokens: []string{"(Sweden)", "(Sw)"}},
	{Name: "Australia", Tokens: []string{"(Australia)", "(A)"}},
	{Name: "Brazil", Tokens: []string{"(Brazil)", "(B)"}},
	{Name: "Korea", Tokens: []string{"(Korea)", "(K)"}},
	{Name: "China", Tokens: []string{"(China)", "(C)"}},
	{Name: "Asia", Tokens: []string{"(Asia)"}},
	{Name: "World", Tokens: []string{"(World)", "(W)"}},
}

// DefaultPriority is the ordered list of preferred regions. Every other
// recognized region ranks below it, and unrecognized names rank lowest.
var DefaultPriority = []string{"France", "Europe", "USA"}

const (
	rankUnrecognized = 0
	rankRecognized   = 1
)

// Region is one entry of the vocabulary.
type Region struct {
	Name   string
	Tokens []string
}

type rankedRegion struct {
	name   string
	rank   int
	tokens []string
}

// RegionTable tags file names with a region and a rank. Higher ranks win.
type RegionTable struct {
	regions []rankedRegion
}

// NewRegionTable ranks the vocabulary by priority: the first entry of
// priority gets the highest rank. A priority entry that is not part of the
// vocabulary is recognized by the token "(<name>)".
func NewRegionTable(priority []string) *RegionTable {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	fold := cases.Fold()
	t := &RegionTable{}

	ranks := make(map[string]int, len(priority))
	for i, name := range priority {
		key := fold.String(strings.TrimSpace(name))
		if _, dup := ranks[key]; !dup {
			ranks[key] = rankRecognized + len(priority) - i
		}
	}

	known := make(map[string]struct{}, len(regionVocabulary))
	for _, r := range regionVocabulary {
		key := fold.String(r.Name)
		known[key] = struct{}{}
		rank := rankRecognized
		if v, ok := ranks[key]; ok {
			rank = v
		}
		t.regions = append(t.regions, rankedRegion{name: r.Name, rank: rank, tokens: foldAll(fold, r.Tokens)})
	}
	for _, name := range priority {
		name = strings.TrimSpace(name)
		key := fold.String(name)
		if _, ok := known[key]; ok || name == "" {
			continue
		}
		known[key] = struct{}{}
		t.regions = append(t.regions, rankedRegion{name: name, rank: ranks[key], tokens: foldAll(fold, []string{"(" + name + ")"})})
	}
	return t
}

func foldAll(fold cases.Caser, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, fold.String(tok))
	}
	return out
}

// Tag returns the best ranked region found in name, or "" with the lowest
// rank when none is recognized. A Caser is stateful, so each call folds
// with its own.
func (t *RegionTable) Tag(name string) (string, int) {
	folded := cases.Fold().String(name)
	best, bestRank := "", rankUnrecognized
	for _, r := range t.regions {
		if r.rank <= bestRank {
			continue
		}
		for _, tok := range r.tokens {
			if strings.Contains(folded, tok) {
				best, bestRank = r.name, r.rank
				break
			}
		}
	}
	return best, bestRank
}

// Rank returns the rank of a region name.
func (t *RegionTable) Rank(region string) int {
	if region == "" {
		return rankUnrecognized
	}
	fold := cases.Fold()
	key := fold.String(region)
	for _, r := range t.regions {
		if fold.String(r.name) == key {
			return r.rank
		}
	}
	return rankUnrecognized
}
