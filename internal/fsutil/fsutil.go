// Package fsutil holds the small file primitives the archiver, diff log, and
// scheduler state share: typed read results and atomic replace-by-rename.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadStatus classifies the outcome of a read.
type ReadStatus int

const (
	Found ReadStatus = iota
	NotFound
	IOError
)

func (s ReadStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	default:
		return "io-error"
	}
}

// ReadResult is either file contents or a typed reason there are none.
type ReadResult struct {
	Status ReadStatus
	Path   string
	Data   []byte
	Err    error
}

// OK reports whether contents were read.
func (r ReadResult) OK() bool { return r.Status == Found }

// ReadFile reads path into a ReadResult. Callers branch on Status instead of
// inspecting OS error values.
func ReadFile(path string) ReadResult {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return ReadResult{Status: Found, Path: path, Data: data}
	case errors.Is(err, fs.ErrNotExist):
		return ReadResult{Status: NotFound, Path: path, Err: err}
	default:
		return ReadResult{Status: IOError, Path: path, Err: err}
	}
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// CopyFileAtomic copies src to dst through WriteFileAtomic.
func CopyFileAtomic(src, dst string) error {
	res := ReadFile(src)
	if !res.OK() {
		return fmt.Errorf("read %s: %w", src, res.Err)
	}
	return WriteFileAtomic(dst, res.Data, 0o644)
}
