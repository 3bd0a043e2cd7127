package mediacache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/albumvault/catalogd/internal/mediacache"
)

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestOpen_DeletesOrphanFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orphan.opus", 100)

	c, err := mediacache.Open(dir, 1<<20, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "orphan.opus")); !os.IsNotExist(err) {
		t.Errorf("expected orphan file to be deleted, stat err = %v", err)
	}
	if c.Stats().FileCount != 0 {
		t.Errorf("FileCount = %d, want 0", c.Stats().FileCount)
	}
}

func TestAdmitAndLookup(t *testing.T) {
	dir := t.TempDir()
	c, err := mediacache.Open(dir, 1<<20, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	writeFile(t, dir, "abc123.opus", 512)
	c.Admit("abc123", "abc123.opus", 512)

	path, ok := c.Lookup("abc123")
	if !ok {
		t.Fatalf("expected cache hit for abc123")
	}
	if filepath.Base(path) != "abc123.opus" {
		t.Errorf("path = %q, want suffix abc123.opus", path)
	}

	if _, ok := c.Lookup("missing"); ok {
		t.Errorf("expected cache miss for missing id")
	}
}

func TestMakeRoom_EvictsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	c, err := mediacache.Open(dir, 1000, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	writeFile(t, dir, "old.opus", 400)
	c.Admit("old", "old.opus", 400)
	writeFile(t, dir, "new.opus", 400)
	c.Admit("new", "new.opus", 400)

	c.MakeRoom(400)

	if _, ok := c.Lookup("old"); ok {
		t.Errorf("expected oldest entry to be evicted")
	}
	if _, ok := c.Lookup("new"); !ok {
		t.Errorf("expected newest entry to survive eviction")
	}
}

func TestClear_RemovesAllFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := mediacache.Open(dir, 1<<20, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	writeFile(t, dir, "a.opus", 10)
	c.Admit("a", "a.opus", 10)

	c.Clear()

	if c.Stats().FileCount != 0 {
		t.Errorf("FileCount after Clear = %d, want 0", c.Stats().FileCount)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.opus")); !os.IsNotExist(err) {
		t.Errorf("expected file removed by Clear")
	}
}

func TestPruneMissingFiles_OnReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := mediacache.Open(dir, 1<<20, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	writeFile(t, dir, "a.opus", 10)
	c.Admit("a", "a.opus", 10)

	if err := os.Remove(filepath.Join(dir, "a.opus")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	c2, err := mediacache.Open(dir, 1<<20, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := c2.Lookup("a"); ok {
		t.Errorf("expected metadata entry with missing backing file to be pruned")
	}
}
