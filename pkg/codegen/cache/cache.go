package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/modgen/pkg/codegen"
)

// FingerprintCache remembers the content hash of files so that file events
// which leave the content unchanged can be told apart from real edits
type FingerprintCache struct {
	config  *Config
	cache   *lru.Cache[string, string]
	metrics *metrics
}

// NewFingerprintCache creates a new fingerprint cache
func NewFingerprintCache(config *Config) (*FingerprintCache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	maxEntries := config.MaxEntries
	if maxEntries < 10 {
		maxEntries = 10 // Minimum 10 entries
	}

	cache, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create fingerprint cache: %w", err)
	}

	return &FingerprintCache{
		config:  config,
		cache:   cache,
		metrics: newMetrics(),
	}, nil
}

// Seed records the current hash of every readable file in paths
func (c *FingerprintCache) Seed(paths []string) {
	for _, path := range paths {
		if sum, err := codegen.FingerprintFile(path); err == nil {
			c.cache.Add(path, sum)
		}
	}
}

// Changed hashes path and reports whether its content differs from the last
// recorded hash. A file that cannot be read counts as changed and is
// forgotten.
func (c *FingerprintCache) Changed(path string) (bool, error) {
	if path == "" {
		return false, ErrInvalidPath
	}

	sum, err := codegen.FingerprintFile(path)
	if err != nil {
		c.cache.Remove(path)
		c.metrics.recordMiss()
		return true, nil
	}

	if prev, ok := c.cache.Get(path); ok && prev == sum {
		c.metrics.recordHit()
		return false, nil
	}

	c.metrics.recordMiss()
	c.cache.Add(path, sum)
	return true, nil
}

// Forget drops the recorded hash of path
func (c *FingerprintCache) Forget(path string) {
	c.cache.Remove(path)
}

// Stats returns cache statistics
func (c *FingerprintCache) Stats() *Stats {
	stats := &Stats{
		Hits:      c.metrics.getHits(),
		Misses:    c.metrics.getMisses(),
		ItemCount: int64(c.cache.Len()),
	}

	// Calculate hit rate
	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	return stats
}

// Close releases resources
func (c *FingerprintCache) Close() error {
	c.cache.Purge()
	return nil
}

// metrics tracks cache metrics
type metrics struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func newMetrics() *metrics {
	return &metrics{}
}

func (m *metrics) recordHit() {
	m.hits.Add(1)
}

func (m *metrics) recordMiss() {
	m.misses.Add(1)
}

func (m *metrics) getHits() int64 {
	return m.hits.Load()
}

func (m *metrics) getMisses() int64 {
	return m.misses.Load()
}
