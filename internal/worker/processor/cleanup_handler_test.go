package processor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPurgeRemovesTopLevelFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.mp4", "1")
	writeFile(t, root, "b.png", "2")
	writeFile(t, root, "sub/keep.mp4", "3")

	removed, err := NewCleanup(root).Purge()
	if err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, expected 2", removed)
	}
	if _, err := os.Stat(filepath.Join(root, "sub", "keep.mp4")); err != nil {
		t.Errorf("subdirectories must be left alone: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.mp4")); !os.IsNotExist(err) {
		t.Error("a.mp4 should be gone")
	}
}

func TestPurgeIsIdempotent(t *testing.T) {
	c := NewCleanup(t.TempDir())
	for i := 0; i < 2; i++ {
		removed, err := c.Purge()
		if err != nil || removed != 0 {
			t.Errorf("run %d: Purge() = %d, %v", i, removed, err)
		}
	}
}

func TestPurgeMissingDirectory(t *testing.T) {
	removed, err := NewCleanup(filepath.Join(t.TempDir(), "absent")).Purge()
	if err != nil || removed != 0 {
		t.Errorf("Purge() = %d, %v; expected a missing folder to count as clean", removed, err)
	}
}
