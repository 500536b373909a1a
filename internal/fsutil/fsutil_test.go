package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileStatuses(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	missing := ReadFile(filepath.Join(dir, "nope.json"))
	if missing.Status != NotFound || missing.OK() {
		t.Fatalf("expected NotFound, got %s", missing.Status)
	}

	// Reading a directory is an I/O failure, not a missing file.
	if res := ReadFile(dir); res.Status != IOError {
		t.Fatalf("expected IOError for directory read, got %s", res.Status)
	}

	path := filepath.Join(dir, "ok.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	res := ReadFile(path)
	if !res.OK() || string(res.Data) != "{}" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestWriteFileAtomicReplacesAndLeavesNoTemp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two" {
		t.Fatalf("unexpected contents %q (%v)", data, err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestCopyFileAtomic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	if err := os.WriteFile(src, []byte("a,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out", "dst.csv")
	if err := CopyFileAtomic(src, dst); err != nil {
		t.Fatalf("CopyFileAtomic: %v", err)
	}
	if !Exists(dst) {
		t.Fatal("copy missing")
	}
	if err := CopyFileAtomic(filepath.Join(dir, "absent"), dst); err == nil {
		t.Fatal("expected error copying a missing file")
	}
}
