package checksum

import (
	"archive/zip"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"romsift/internal/services"
)

// Computer hashes files and memoizes results for the lifetime of one run.
// A result is reused only while the file keeps the same size and
// modification time.
type Computer struct {
	cache *gocache.Cache
}

// New returns a Computer with an empty in-memory cache.
func New() *Computer {
	return &Computer{cache: gocache.New(gocache.NoExpiration, 0)}
}

// ArchiveEntry describes the single file inside a zip archive.
type ArchiveEntry struct {
	Name string
	Size int64
}

// IsArchive reports whether path is handled as a zip archive.
func IsArchive(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".zip")
}

// Compute returns the uppercase hex MD5 of the file, or of the single entry
// of a zip archive. It fails with ErrUnreadableFile for I/O errors and
// corrupt archives, and with ErrUnsupportedFormat for archives that do not
// hold exactly one file.
func (c *Computer) Compute(p string) (string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return "", services.Wrap(services.ErrUnreadableFile, "checksum", "stat", p, err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrUnreadableFile, "checksum", "stat", p+" is not a regular file", nil)
	}
	key := cacheKey(p, info.Size(), info.ModTime())
	if c != nil && c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(string), nil
		}
	}

	sum, err := compute(p)
	if err != nil {
		return "", err
	}
	if c != nil && c.cache != nil {
		c.cache.Set(key, sum, gocache.NoExpiration)
	}
	return sum, nil
}

// Compute hashes p without memoization.
func Compute(p string) (string, error) {
	return compute(p)
}

// Entry returns the single file entry of a zip archive.
func Entry(p string) (ArchiveEntry, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return ArchiveEntry{}, archiveOpenError(p, err)
	}
	defer r.Close()
	f, err := singleEntry(p, r.File)
	if err != nil {
		return ArchiveEntry{}, err
	}
	return ArchiveEntry{Name: path.Base(f.Name), Size: int64(f.UncompressedSize64)}, nil
}

// Open returns a reader over the content that Compute hashes: the file
// itself, or the single entry of a zip archive.
func Open(p string) (io.ReadCloser, error) {
	if !IsArchive(p) {
		f, err := os.Open(p)
		if err != nil {
			return nil, services.Wrap(services.ErrUnreadableFile, "checksum", "open", p, err)
		}
		return f, nil
	}
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, archiveOpenError(p, err)
	}
	f, err := singleEntry(p, r.File)
	if err != nil {
		r.Close()
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		r.Close()
		return nil, services.Wrap(services.ErrUnreadableFile, "checksum", "open entry", p, err)
	}
	return &entryReader{ReadCloser: rc, archive: r}, nil
}

type entryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (e *entryReader) Close() error {
	return errors.Join(e.ReadCloser.Close(), e.archive.Close())
}

func compute(p string) (string, error) {
	rc, err := Open(p)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := md5.New()
	if _, err := io.Copy(h, rc); err != nil {
		// zip reports checksum mismatches and truncated data here.
		return "", services.Wrap(services.ErrUnreadableFile, "checksum", "read", p, err)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

func singleEntry(p string, files []*zip.File) (*zip.File, error) {
	var entries []*zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		entries = append(entries, f)
	}
	if len(entries) != 1 {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "checksum", "archive",
			fmt.Sprintf("%s holds %d files, expected exactly one", p, len(entries)), nil)
	}
	return entries[0], nil
}

func archiveOpenError(p string, err error) error {
	return services.Wrap(services.ErrUnreadableFile, "checksum", "open archive", p, err)
}

func cacheKey(p string, size int64, mtime time.Time) string {
	return fmt.Sprintf("%s|%d|%d", p, size, mtime.UnixNano())
}
