package marketdata

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

// FileCache keeps JSON blobs on disk, one file per key, expiring by modification time.
type FileCache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
}

type cacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

func (c *FileCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	// a hash collision shows up as a key mismatch
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Key != key {
		return nil, false
	}
	return entry.Data, true
}

func (c *FileCache) Set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(cacheEntry{Key: key, Data: data, Timestamp: time.Now()})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(key), raw, 0o644)
}

// CleanupExpired removes every entry older than the TTL.
func (c *FileCache) CleanupExpired() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > c.ttl {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, fmt.Sprintf("%x.json", sum[:12]))
}

// Cached serves snapshots from a FileCache and only stores non-empty ones, so a
// transient upstream failure is retried on the next request.
type Cached struct {
	source interfaces.MarketDataSource
	cache  *FileCache
}

var _ interfaces.MarketDataSource = (*Cached)(nil)

func NewCached(source interfaces.MarketDataSource, cache *FileCache) *Cached {
	return &Cached{source: source, cache: cache}
}

func (c *Cached) Fetch(ctx context.Context, ticker string, start, end time.Time) types.MarketSnapshot {
	key := fmt.Sprintf("%s|%s|%s", ticker, start.Format(DateLayout), end.Format(DateLayout))
	if raw, ok := c.cache.Get(key); ok {
		var snap types.MarketSnapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			logger.Debug(ctx, "Market data cache hit", "ticker", ticker)
			return snap
		}
	}

	snap := c.source.Fetch(ctx, ticker, start, end)
	if snap.Empty {
		return snap
	}
	raw, err := json.Marshal(snap)
	if err == nil {
		err = c.cache.Set(key, raw)
	}
	if err != nil {
		logger.Warn(ctx, "Failed to cache market data", "ticker", ticker, "error", err)
	}
	return snap
}
