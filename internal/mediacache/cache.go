// Package mediacache implements the on-disk LRU cache of downloaded
// audio blobs described by the media cache component: one file per
// external video id plus a JSON sidecar tracking size and access time.
//
// Ported from the reference youtube_cache_manager.py's algorithm (eager
// orphan cleanup, ascending-last-accessed eviction, lazy drop of
// metadata entries whose backing file has disappeared). There is no
// third-party disk-cache library anywhere in the example pack — the
// closest candidate (derat-nup's server/cache) wraps App Engine
// memcache/datastore query-result caching, not a local-disk blob
// cache — so this is built directly on os/encoding/json.
package mediacache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const metadataFilename = "cache_metadata.json"

// DefaultAdmitEstimate is the estimated size used by make_room when the
// caller does not know the exact size in advance (10 MiB, matching the
// reference manager's default).
const DefaultAdmitEstimate = 10 * 1024 * 1024

// Entry is one sidecar metadata record.
type Entry struct {
	Filename     string    `json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	DownloadDate time.Time `json:"download_date"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Stats summarizes cache occupancy.
type Stats struct {
	TotalSizeBytes int64
	MaxSizeBytes   int64
	FileCount      int
	AvailableBytes int64
}

// Cache is a quota-bounded LRU directory of opaque binary files.
type Cache struct {
	dir  string
	log  *slog.Logger
	mu   sync.Mutex
	meta map[string]*Entry // video id -> entry
	max  int64
}

// Open initializes the cache at dir with the given quota in bytes. It
// loads existing sidecar metadata, deletes files with no metadata entry,
// and drops metadata entries whose backing file is missing — both
// eagerly, unlike the Python original which only removes orphan files
// eagerly and prunes missing-file metadata lazily on next access.
func Open(dir string, maxBytes int64, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mediacache: create dir: %w", err)
	}
	c := &Cache{dir: dir, log: log, max: maxBytes, meta: map[string]*Entry{}}
	if err := c.loadMetadata(); err != nil {
		return nil, err
	}
	if err := c.cleanupOrphanFiles(); err != nil {
		return nil, err
	}
	c.pruneMissingFiles()
	if err := c.saveMetadataLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) metadataPath() string {
	return filepath.Join(c.dir, metadataFilename)
}

func (c *Cache) loadMetadata() error {
	b, err := os.ReadFile(c.metadataPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mediacache: read metadata: %w", err)
	}
	var raw map[string]*Entry
	if err := json.Unmarshal(b, &raw); err != nil {
		c.log.Error("mediacache: corrupt metadata file, starting empty", "error", err)
		return nil
	}
	c.meta = raw
	return nil
}

func (c *Cache) saveMetadataLocked() error {
	b, err := json.MarshalIndent(c.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("mediacache: marshal metadata: %w", err)
	}
	tmp := c.metadataPath() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("mediacache: write metadata: %w", err)
	}
	return os.Rename(tmp, c.metadataPath())
}

func (c *Cache) cleanupOrphanFiles() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("mediacache: list dir: %w", err)
	}
	tracked := map[string]bool{}
	for _, e := range c.meta {
		tracked[e.Filename] = true
	}
	for _, de := range entries {
		if de.IsDir() || de.Name() == metadataFilename || de.Name() == metadataFilename+".tmp" {
			continue
		}
		if !tracked[de.Name()] {
			if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil {
				c.log.Error("mediacache: failed to delete orphan file", "file", de.Name(), "error", err)
				continue
			}
			c.log.Info("mediacache: deleted orphan file", "file", de.Name())
		}
	}
	return nil
}

func (c *Cache) pruneMissingFiles() {
	for id, e := range c.meta {
		if _, err := os.Stat(filepath.Join(c.dir, e.Filename)); err != nil {
			c.log.Warn("mediacache: metadata entry has no backing file, dropping", "id", id)
			delete(c.meta, id)
		}
	}
}

// Lookup returns the absolute path to id's cached file if present,
// updating its last-accessed time. Returns ok=false if not cached.
func (c *Cache) Lookup(id string) (path string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.meta[id]
	if !found {
		return "", false
	}
	p := filepath.Join(c.dir, e.Filename)
	if _, err := os.Stat(p); err != nil {
		delete(c.meta, id)
		_ = c.saveMetadataLocked()
		return "", false
	}
	e.LastAccessed = time.Now().UTC()
	_ = c.saveMetadataLocked()
	return p, true
}

// Admit records a newly-downloaded file of the given size in the
// metadata. The caller must have already written the file at
// filepath.Join(dir, filename).
func (c *Cache) Admit(id, filename string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	c.meta[id] = &Entry{
		Filename:     filename,
		SizeBytes:    size,
		DownloadDate: now,
		LastAccessed: now,
	}
	_ = c.saveMetadataLocked()
}

// TotalSize returns the sum of all tracked file sizes, pruning any
// entries whose backing file has since disappeared.
func (c *Cache) TotalSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSizeLocked()
}

func (c *Cache) totalSizeLocked() int64 {
	var total int64
	dirty := false
	for id, e := range c.meta {
		fi, err := os.Stat(filepath.Join(c.dir, e.Filename))
		if err != nil {
			delete(c.meta, id)
			dirty = true
			continue
		}
		total += fi.Size()
	}
	if dirty {
		_ = c.saveMetadataLocked()
	}
	return total
}

// Stats reports current occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.totalSizeLocked()
	avail := c.max - total
	if avail < 0 {
		avail = 0
	}
	return Stats{
		TotalSizeBytes: total,
		MaxSizeBytes:   c.max,
		FileCount:      len(c.meta),
		AvailableBytes: avail,
	}
}

// MakeRoom evicts files in strict ascending last-accessed order until
// current_size + estimate <= quota.
func (c *Cache) MakeRoom(estimate int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.makeRoomLocked(estimate)
}

func (c *Cache) makeRoomLocked(estimate int64) {
	current := c.totalSizeLocked()
	if current+estimate <= c.max {
		return
	}

	type lruItem struct {
		id string
		e  *Entry
	}
	items := make([]lruItem, 0, len(c.meta))
	for id, e := range c.meta {
		items = append(items, lruItem{id, e})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].e.LastAccessed.Before(items[j].e.LastAccessed)
	})

	target := c.max - estimate
	for _, it := range items {
		if current <= target {
			break
		}
		p := filepath.Join(c.dir, it.e.Filename)
		if fi, err := os.Stat(p); err == nil {
			if err := os.Remove(p); err != nil {
				c.log.Error("mediacache: failed to evict file", "file", it.e.Filename, "error", err)
				continue
			}
			current -= fi.Size()
		}
		delete(c.meta, it.id)
	}
	_ = c.saveMetadataLocked()
}

// Clear deletes every cached file and resets metadata.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.meta {
		_ = os.Remove(filepath.Join(c.dir, e.Filename))
		delete(c.meta, id)
	}
	_ = c.saveMetadataLocked()
}

// SetQuota updates the max size. If the new quota is smaller than the
// current one, eviction runs immediately.
func (c *Cache) SetQuota(maxBytes int64) {
	c.mu.Lock()
	shrinking := maxBytes < c.max
	c.max = maxBytes
	if shrinking {
		c.makeRoomLocked(0)
	}
	c.mu.Unlock()
}

// Dir returns the cache's backing directory, so callers (e.g. the
// download manager) can write new files directly before calling Admit.
func (c *Cache) Dir() string { return c.dir }
