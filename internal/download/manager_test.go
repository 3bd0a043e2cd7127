package download_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/albumvault/catalogd/internal/download"
)

type fakeCache struct {
	mu   sync.Mutex
	dir  string
	hits map[string]string
}

func newFakeCache(dir string) *fakeCache {
	return &fakeCache{dir: dir, hits: map[string]string{}}
}

func (c *fakeCache) Lookup(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.hits[id]
	return p, ok
}

func (c *fakeCache) Admit(id, filename string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits[id] = filepath.Join(c.dir, filename)
}

func (c *fakeCache) MakeRoom(estimate int64)  {}
func (c *fakeCache) Dir() string              { return c.dir }
func (c *fakeCache) SetQuota(maxBytes int64)  {}

type fakeFetcher struct {
	mu       sync.Mutex
	fail     map[string]int // id -> remaining failures before success
	fetched  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, id, dir string) (string, error) {
	f.mu.Lock()
	remaining := f.fail[id]
	if remaining > 0 {
		f.fail[id] = remaining - 1
	}
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if remaining > 0 {
		return "", context.DeadlineExceeded
	}
	path := filepath.Join(dir, id+".opus")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func waitForStatus(t *testing.T, m *download.Manager, id string, want download.Status, timeout time.Duration) *download.Task {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if task := m.Status(id); task != nil && task.Status == want {
			return task
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("id %s did not reach status %s in time; last=%v", id, want, m.Status(id))
	return nil
}

func TestDownload_CacheHitReturnsSynchronously(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	cache.hits["cached-id"] = filepath.Join(dir, "cached-id.opus")

	m := download.New(cache, &fakeFetcher{fail: map[string]int{}}, download.Config{MaxParallel: 2}, nil)
	path, task := m.Download("cached-id", 0)
	if task != nil {
		t.Errorf("expected nil task for cache hit, got %v", task)
	}
	if path == "" {
		t.Errorf("expected non-empty cached path")
	}
}

func TestDownload_SucceedsAndUpdatesStatistics(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	fetcher := &fakeFetcher{fail: map[string]int{}}
	m := download.New(cache, fetcher, download.Config{MaxParallel: 2}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	m.Download("vid1", 0)
	waitForStatus(t, m, "vid1", download.StatusCompleted, 2*time.Second)

	stats := m.Statistics()
	if stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", stats.Completed)
	}
}

func TestDownload_RetriesThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	fetcher := &fakeFetcher{fail: map[string]int{"vid2": 1}}
	m := download.New(cache, fetcher, download.Config{MaxParallel: 1, MaxAttempts: 3}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	m.Download("vid2", 0)
	task := waitForStatus(t, m, "vid2", download.StatusCompleted, 3*time.Second)
	if task.Attempts < 2 {
		t.Errorf("Attempts = %d, want >= 2 (at least one retry)", task.Attempts)
	}
}

func TestDownload_FailsPermanentlyAfterMaxAttempts(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	fetcher := &fakeFetcher{fail: map[string]int{"vid3": 10}}
	m := download.New(cache, fetcher, download.Config{MaxParallel: 1, MaxAttempts: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	m.Download("vid3", 0)
	waitForStatus(t, m, "vid3", download.StatusFailed, 2*time.Second)
}

func TestDownload_IdempotentPerID(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	fetcher := &fakeFetcher{fail: map[string]int{}}
	m := download.New(cache, fetcher, download.Config{MaxParallel: 1}, nil)

	m.Download("dupe", 0)
	_, task := m.Download("dupe", 5)
	if task == nil {
		t.Fatalf("expected existing task to be returned for duplicate id")
	}
	if task.ID != "dupe" {
		t.Errorf("task.ID = %q, want dupe", task.ID)
	}
}

func TestUpdateMaxParallel_AcceptsTasksAfterRaiseWithoutRestart(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	fetcher := &fakeFetcher{fail: map[string]int{}}
	m := download.New(cache, fetcher, download.Config{MaxParallel: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	m.UpdateMaxParallel(5)
	for i := 0; i < 5; i++ {
		m.Download(filepath.Base(t.TempDir()), 0)
	}

	stats := m.Statistics()
	if stats.Total != 5 {
		t.Fatalf("Total = %d, want 5 tasks queued", stats.Total)
	}
}

func TestUpdateMaxParallel_ClampsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	m := download.New(cache, &fakeFetcher{fail: map[string]int{}}, download.Config{MaxParallel: 2}, nil)

	m.UpdateMaxParallel(0)
	m.UpdateMaxParallel(50)
	// Neither call should panic; the manager keeps accepting new tasks.
	m.Download("after-clamp", 0)
	if task := m.Status("after-clamp"); task == nil {
		t.Fatal("expected task to be queued after UpdateMaxParallel clamping")
	}
}

func TestDownloadPlaylist_PrioritizesCurrentAndNext(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache(dir)
	fetcher := &fakeFetcher{fail: map[string]int{}}
	m := download.New(cache, fetcher, download.Config{MaxParallel: 0}, nil)

	ids := []string{"a", "b", "c", "d", "e"}
	m.DownloadPlaylist(ids, 2)

	for _, id := range ids {
		if task := m.Status(id); task == nil {
			t.Errorf("expected task for %s to be queued", id)
		}
	}
	current := m.Status("c")
	next := m.Status("d")
	if current.Priority <= next.Priority {
		t.Errorf("current index priority %d should exceed next-up priority %d", current.Priority, next.Priority)
	}
}
