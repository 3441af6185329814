package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicCreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "doc.json")

	if err := WriteFileAtomic(p, []byte("first"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "first" {
		t.Fatalf("read back: %q err=%v", b, err)
	}

	if err := WriteFileAtomic(p, []byte("second"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	b, _ = os.ReadFile(p)
	if string(b) != "second" {
		t.Fatalf("expected replacement, got %q", b)
	}

	// No temp files should survive a successful write.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, got %d entries", len(entries))
	}
}

func TestWriteFileAtomicBadDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "missing", "doc.json")
	if err := WriteFileAtomic(p, []byte("x"), 0o644); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
