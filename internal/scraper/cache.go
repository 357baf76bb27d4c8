package scraper

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sydlexius/driftwood/internal/filesystem"
	"github.com/sydlexius/driftwood/internal/platform"
)

// CacheKind names one of the per-provider result cache families.
type CacheKind string

// Known cache kinds.
const (
	CacheCandidates CacheKind = "candidates"
	CacheMetadata   CacheKind = "metadata"
	CacheAssets     CacheKind = "assets"
	CacheInternal   CacheKind = "internal"
)

// cacheKinds lists every kind, in flush order.
var cacheKinds = []CacheKind{CacheCandidates, CacheMetadata, CacheAssets, CacheInternal}

// cacheBucket is the in-memory mirror of one on-disk cache file.
type cacheBucket struct {
	loaded  bool
	dirty   bool
	entries map[string]json.RawMessage
}

// ResultCache is a lazy, write-behind disk cache of provider results. Each
// (kind, platform) pair maps to one JSON file named
// <provider>__<platform>__<kind>.json in the cache directory; keys inside
// are item basenames. Files are read on first access and written back only
// when Flush finds the bucket loaded, non-empty and dirty.
type ResultCache struct {
	mu       sync.Mutex
	dir      string
	provider string
	logger   *slog.Logger
	buckets  map[string]*cacheBucket
}

// NewResultCache creates a cache rooted at dir for the named provider.
func NewResultCache(dir, provider string, logger *slog.Logger) *ResultCache {
	return &ResultCache{
		dir:      dir,
		provider: provider,
		logger:   logger.With(slog.String("component", "cache"), slog.String("provider", provider)),
		buckets:  make(map[string]*cacheBucket),
	}
}

// filePath returns the on-disk path for one bucket.
func (c *ResultCache) filePath(kind CacheKind, plat string) string {
	name := fmt.Sprintf("%s__%s__%s.json", c.provider, platform.FileSafe(plat), kind)
	return filepath.Join(c.dir, name)
}

// bucket returns the in-memory bucket for (kind, platform), loading it from
// disk on first access. A missing or unreadable file yields an empty bucket.
func (c *ResultCache) bucket(kind CacheKind, plat string) *cacheBucket {
	id := string(kind) + "\x00" + plat
	b, ok := c.buckets[id]
	if ok {
		return b
	}

	b = &cacheBucket{loaded: true, entries: make(map[string]json.RawMessage)}
	c.buckets[id] = b

	path := c.filePath(kind, plat)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path built from config
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache file unreadable, starting empty",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return b
	}
	if err := json.Unmarshal(data, &b.entries); err != nil {
		c.logger.Warn("cache file corrupt, starting empty",
			slog.String("path", path), slog.String("error", err.Error()))
		b.entries = make(map[string]json.RawMessage)
	}
	return b
}

// Has reports whether the cache holds an entry for key.
func (c *ResultCache) Has(kind CacheKind, plat, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.bucket(kind, plat).entries[key]
	return ok
}

// Get unmarshals the cached entry for key into dest. The boolean reports
// whether an entry existed.
func (c *ResultCache) Get(kind CacheKind, plat, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.bucket(kind, plat).entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decoding cache entry %s/%s/%s: %w", kind, plat, key, err)
	}
	return true, nil
}

// Set stores value under key and marks the bucket dirty.
func (c *ResultCache) Set(kind CacheKind, plat, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s/%s/%s: %w", kind, plat, key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bucket(kind, plat)
	b.entries[key] = raw
	b.dirty = true
	return nil
}

// Delete removes the entry for key, if present.
func (c *ResultCache) Delete(kind CacheKind, plat, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.bucket(kind, plat)
	if _, ok := b.entries[key]; ok {
		delete(b.entries, key)
		b.dirty = true
	}
}

// Flush writes every loaded, non-empty, dirty bucket back to disk and clears
// the dirty flags. Untouched buckets produce no file and no write.
func (c *ResultCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, b := range c.buckets {
		if !b.loaded || !b.dirty || len(b.entries) == 0 {
			continue
		}
		kind, plat := splitBucketID(id)
		data, err := json.MarshalIndent(b.entries, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding cache %s/%s: %w", kind, plat, err)
		}
		path := c.filePath(kind, plat)
		if err := filesystem.WriteFileAtomic(path, data, 0o644); err != nil {
			return fmt.Errorf("writing cache %s/%s: %w", kind, plat, err)
		}
		b.dirty = false
		c.logger.Debug("cache flushed",
			slog.String("kind", string(kind)),
			slog.String("platform", plat),
			slog.Int("entries", len(b.entries)))
	}
	return nil
}

// splitBucketID reverses the bucket map key encoding.
func splitBucketID(id string) (CacheKind, string) {
	for i := 0; i < len(id); i++ {
		if id[i] == 0 {
			return CacheKind(id[:i]), id[i+1:]
		}
	}
	return CacheKind(id), ""
}
