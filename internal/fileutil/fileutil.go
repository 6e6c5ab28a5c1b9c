package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// WriteAtomic streams content produced by fill into a temporary file in the
// destination directory and renames it over path. The temporary file is
// removed on any failure, so path is either untouched or complete.
func WriteAtomic(path string, perm os.FileMode, fill func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}
	if err := fill(tmp); err != nil {
		return fail("write temp file", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail("chmod temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to path through a temporary file and rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyFileAtomic copies src to dst through a temporary file and keeps the
// source modification time. It returns the number of bytes copied.
func CopyFileAtomic(src, dst string, mode os.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}

	var written int64
	err = WriteAtomic(dst, mode, func(w io.Writer) error {
		n, err := io.Copy(w, in)
		written = n
		return err
	})
	if err != nil {
		return written, err
	}
	if written != info.Size() {
		return written, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	SetModTime(dst, info.ModTime())
	return written, nil
}

// SetModTime sets the access and modification time of path, ignoring errors
// on filesystems that refuse it.
func SetModTime(path string, mtime time.Time) {
	if mtime.IsZero() {
		return
	}
	_ = os.Chtimes(path, mtime, mtime)
}
