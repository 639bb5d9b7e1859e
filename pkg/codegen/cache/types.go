package cache

import (
	"github.com/platinummonkey/modgen/pkg/codegen/config"
)

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	HitRate   float64
	ItemCount int64
}

// Config holds cache configuration
type Config struct {
	MaxEntries int // Max number of files tracked (default: 1024)
}

// DefaultConfig returns default cache configuration
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: config.DefaultFingerprintCacheSize,
	}
}
