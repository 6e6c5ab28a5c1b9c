package matcher_test

import (
	"archive/zip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"romsift/internal/catalog"
	"romsift/internal/matcher"
	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

func sumOf(content string) string {
	h := md5.Sum([]byte(content))
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for entry, content := range entries {
		w, err := zw.Create(entry)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

type game struct {
	id     int64
	title  string
	labels map[string]string
}

func buildIndex(t *testing.T, games ...game) *catalog.Index {
	t.Helper()
	raws := make([]catalog.RawRecord, 0, len(games))
	for _, g := range games {
		var hashes []retroachievements.Hash
		for sum, label := range g.labels {
			hashes = append(hashes, retroachievements.Hash{MD5: sum, Name: label})
		}
		raws = append(raws, catalog.RawRecord{ID: g.id, Title: g.title, NumAchievements: 1, Hashes: hashes, Info: []byte("{}")})
	}
	return indexOf(t, raws...)
}

func indexOf(t *testing.T, raws ...catalog.RawRecord) *catalog.Index {
	t.Helper()
	seq := func(yield func(catalog.RawRecord, error) bool) {
		for _, raw := range raws {
			if !yield(raw, nil) {
				return
			}
		}
	}
	index, _, err := catalog.Build(seq)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return index
}

func TestHashFiltersExtensionsAndSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.Z64", "b")
	writeFile(t, dir, "a.n64", "a")
	writeFile(t, dir, "notes.txt", "not a rom")
	writeFile(t, dir, "cover.jpg", "image")
	writeFile(t, dir, filepath.Join("filtered", "c.z64"), "c")

	var hashed []string
	m := matcher.New(matcher.WithFileCallback(func(c matcher.Candidate) { hashed = append(hashed, c.Name) }))
	candidates, err := m.Hash(context.Background(), dir)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !slices.Equal(hashed, []string{"a.n64", "b.Z64"}) {
		t.Fatalf("unexpected hashed files %v", hashed)
	}
	if len(candidates) != 2 || candidates[0].Position != 0 || candidates[1].Position != 1 {
		t.Fatalf("unexpected candidates %+v", candidates)
	}
	if candidates[0].Checksum != sumOf("a") {
		t.Fatalf("unexpected checksum %s", candidates[0].Checksum)
	}
}

func TestHashCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "game.sfc", "snes")
	writeFile(t, dir, "game.z64", "n64")
	candidates, err := matcher.New(matcher.WithExtensions([]string{"SFC"})).Hash(context.Background(), dir)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Name != "game.sfc" {
		t.Fatalf("unexpected candidates %+v", candidates)
	}
}

func TestScanClassifiesEveryFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1 Mario (Europe).z64", "mario-eu")
	writeZip(t, dir, "2 Zelda (USA).zip", map[string]string{"Zelda (USA).z64": "zelda-us"})
	writeFile(t, dir, "3 Hack.z64", "hack")
	writeFile(t, dir, "4 Unknown.v64", "unknown")
	writeZip(t, dir, "5 Pack.zip", map[string]string{"a.z64": "a", "b.z64": "b"})
	writeFile(t, dir, "6 Broken.zip", "not a zip")

	index := indexOf(t,
		catalog.RawRecord{ID: 1, Title: "Mario", NumAchievements: 1, Info: []byte("{}"),
			Hashes: []retroachievements.Hash{{MD5: sumOf("mario-eu"), Name: "Mario (Europe)"}}},
		catalog.RawRecord{ID: 2, Title: "Zelda", NumAchievements: 1, Info: []byte("{}"),
			Hashes: []retroachievements.Hash{{MD5: sumOf("zelda-us"), Name: "Zelda (USA)"}}},
		catalog.RawRecord{ID: 99, Title: "~Hack~ Mario",
			Hashes: []retroachievements.Hash{{MD5: sumOf("hack")}}},
	)

	candidates, err := matcher.New().Scan(context.Background(), dir, index)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []matcher.Status{
		matcher.StatusMatched,
		matcher.StatusMatched,
		matcher.StatusExcluded,
		matcher.StatusUnmatched,
		matcher.StatusUnsupported,
		matcher.StatusUnreadable,
	}
	if len(candidates) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(candidates))
	}
	for i, c := range candidates {
		if c.Status != want[i] {
			t.Fatalf("%s: status %s, want %s", c.Name, c.Status, want[i])
		}
	}
	if candidates[1].Record == nil || candidates[1].Record.ID != 2 {
		t.Fatalf("expected zipped rom to match record 2, got %+v", candidates[1])
	}
	if candidates[2].ExcludedID != 99 || candidates[2].Record != nil {
		t.Fatalf("expected excluded owner 99, got %+v", candidates[2])
	}
	if !errors.Is(candidates[4].Err, services.ErrUnsupportedFormat) || !errors.Is(candidates[5].Err, services.ErrUnreadableFile) {
		t.Fatalf("unexpected per-file errors %v / %v", candidates[4].Err, candidates[5].Err)
	}
	if candidates[0].Region != "Europe" || candidates[1].Region != "USA" {
		t.Fatalf("unexpected regions %q %q", candidates[0].Region, candidates[1].Region)
	}

	summary := matcher.Summarize(candidates)
	if summary.Matched != 2 || summary.Excluded != 1 || summary.Unmatched != 1 || summary.Failed() != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRegionFromCatalogFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mario.z64", "mario")
	index := buildIndex(t, game{id: 1, title: "Mario", labels: map[string]string{sumOf("mario"): "Super Mario 64 (Europe) (En,Fr,De)"}})

	plain, err := matcher.New().Scan(context.Background(), dir, index)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if plain[0].Region != "" {
		t.Fatalf("expected no region without fallback, got %q", plain[0].Region)
	}
	withFallback, err := matcher.New(matcher.WithRegionFromCatalog(true)).Scan(context.Background(), dir, index)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if withFallback[0].Region != "France" {
		t.Fatalf("expected catalog label region, got %q", withFallback[0].Region)
	}
}

func TestHashMissingDirectoryFails(t *testing.T) {
	_, err := matcher.New().Hash(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestHashHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.z64", "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := matcher.New().Hash(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
