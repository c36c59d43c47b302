package oracle

import (
	"fmt"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

type cacheEntry struct {
	oracle  *Oracle
	modTime time.Time
	size    int64
}

// Cache keeps recently loaded oracles keyed by artifact path. An entry is
// reloaded when the file's modification time or size changes, so a retrained
// strategy is picked up on the next Get.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, cacheEntry]
	loads   int
}

func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the oracle stored at path, loading it if needed.
func (c *Cache) Get(path string) (*Oracle, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.entries.Remove(path)
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries.Get(path); ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.oracle, nil
	}

	o, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.loads++
	c.entries.Add(path, cacheEntry{oracle: o, modTime: info.ModTime(), size: info.Size()})

	log.Debug().Str("path", path).Str("id", o.ID).Msg("Oracle loaded")
	return o, nil
}

// Len returns the number of cached oracles.
func (c *Cache) Len() int { return c.entries.Len() }

// Loads returns how many times an artifact was read from disk.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}
