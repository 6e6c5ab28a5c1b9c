package checksum_test

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"romsift/internal/checksum"
	"romsift/internal/services"
)

const helloMD5 = "5D41402ABC4B2A76B9719D911017C592"

func writeZip(t *testing.T, path string, entries map[string]string, dirs ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, d := range dirs {
		if _, err := zw.Create(d); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestComputeRawFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.z64")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := checksum.New().Compute(path)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if sum != helloMD5 {
		t.Fatalf("unexpected checksum %s", sum)
	}
}

func TestComputeZipMatchesRawContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Game (Europe).ZIP")
	writeZip(t, path, map[string]string{"roms/Game (Europe).z64": "hello"}, "roms/")

	sum, err := checksum.New().Compute(path)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if sum != helloMD5 {
		t.Fatalf("expected checksum of decompressed entry, got %s", sum)
	}
	entry, err := checksum.Entry(path)
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if entry.Name != "Game (Europe).z64" || entry.Size != 5 {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestComputeZipEntryCountUnsupported(t *testing.T) {
	dir := t.TempDir()
	multi := filepath.Join(dir, "multi.zip")
	writeZip(t, multi, map[string]string{"a.z64": "a", "b.z64": "b"})
	empty := filepath.Join(dir, "empty.zip")
	writeZip(t, empty, nil, "only-a-dir/")

	for _, path := range []string{multi, empty} {
		_, err := checksum.New().Compute(path)
		if !errors.Is(err, services.ErrUnsupportedFormat) {
			t.Fatalf("%s: expected unsupported format, got %v", filepath.Base(path), err)
		}
	}
}

func TestComputeCorruptZipUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(path, []byte("PK\x03\x04 definitely not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := checksum.New().Compute(path); !errors.Is(err, services.ErrUnreadableFile) {
		t.Fatalf("expected unreadable file, got %v", err)
	}
}

func TestComputeMissingFileUnreadable(t *testing.T) {
	_, err := checksum.New().Compute(filepath.Join(t.TempDir(), "missing.z64"))
	if !errors.Is(err, services.ErrUnreadableFile) {
		t.Fatalf("expected unreadable file, got %v", err)
	}
	if !services.Recoverable(err) {
		t.Fatal("expected per-file error to be recoverable")
	}
}

func TestComputeMemoizesBySizeAndModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.n64")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	c := checksum.New()
	first, err := c.Compute(path)
	if err != nil {
		t.Fatal(err)
	}

	// Same size and mtime: the memoized value is returned.
	if err := os.WriteFile(path, []byte("HELLO"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	second, err := c.Compute(path)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Fatalf("expected memoized checksum, got %s", second)
	}

	later := mtime.Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	third, err := c.Compute(path)
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Fatal("expected recomputation after modification time changed")
	}
}

func TestOpenStreamsArchiveEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.zip")
	writeZip(t, path, map[string]string{"game.v64": "payload"})
	rc, err := checksum.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}
}
