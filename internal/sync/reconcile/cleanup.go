package reconcile

import (
	"context"
	"time"

	"github.com/ovida/shopcore/internal/cache"
)

const (
	// DefaultHistoryTTL is how long a browsing-history entry is kept.
	DefaultHistoryTTL = 7 * 24 * time.Hour
	// DefaultCacheTTL is how long an untouched cache entry survives.
	DefaultCacheTTL = 24 * time.Hour
)

// Cleaner bounds local growth: old browsing history entries are dropped and
// stale unprotected cache entries evicted. Runs as the last phase of a sync run.
type Cleaner struct {
	history    *History
	cache      cache.QueryCache
	historyTTL time.Duration
	cacheTTL   time.Duration
	now        func() time.Time
}

// NewCleaner creates a Cleaner with the default retention windows.
func NewCleaner(history *History, qc cache.QueryCache) *Cleaner {
	return &Cleaner{
		history:    history,
		cache:      qc,
		historyTTL: DefaultHistoryTTL,
		cacheTTL:   DefaultCacheTTL,
		now:        time.Now,
	}
}

// Run executes the retention pass.
func (c *Cleaner) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.history.Prune(c.historyTTL, c.now())
	c.cache.RemoveEntriesOlderThan(c.cacheTTL, cache.ProtectedKeys)
	return nil
}
