package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ovida/shopcore/internal/localstore"
	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/telemetry"
)

// Key identifies one reactive query the UI subscribes to.
type Key string

const (
	KeyCart      Key = "cart"
	KeyFavorites Key = "favorites"
	KeyAuth      Key = "auth"
	KeyProfile   Key = "profile"
)

// ProtectedKeys are never evicted by age-based cleanup.
var ProtectedKeys = []Key{KeyCart, KeyFavorites, KeyAuth, KeyProfile}

// QueryCache is the invalidation surface the sync engine consumes. The cache
// itself lives in the UI layer; the engine only tells it what went stale.
type QueryCache interface {
	// Invalidate triggers dependent readers of key to refetch.
	Invalidate(key Key)

	// RemoveEntriesOlderThan evicts entries whose last fill is older than
	// maxAge, except the given keys.
	RemoveEntriesOlderThan(maxAge time.Duration, except []Key)
}

const metaKey = "cache_meta"

// BroadcastCache implements QueryCache by publishing invalidation events to
// UI readers through a Broadcaster. Entry fill times are tracked in the
// durable store under cache_meta so eviction ages survive restarts.
type BroadcastCache struct {
	hub   Broadcaster
	store *localstore.Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewBroadcastCache creates a BroadcastCache.
func NewBroadcastCache(hub Broadcaster, store *localstore.Store) *BroadcastCache {
	return &BroadcastCache{hub: hub, store: store, now: time.Now}
}

// Touch records that the UI filled the cache entry for key just now. Called
// from the HTTP surface when a reader reports a fetch.
func (c *BroadcastCache) Touch(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta := c.loadMeta()
	meta[key] = c.now().Unix()
	c.saveMeta(meta)
}

// Invalidate implements QueryCache.
func (c *BroadcastCache) Invalidate(key Key) {
	c.mu.Lock()
	meta := c.loadMeta()
	delete(meta, key)
	c.saveMeta(meta)
	c.mu.Unlock()

	c.hub.BroadcastEvent(EventCacheInvalidated, map[string]interface{}{
		"key": string(key),
	})
	telemetry.TrackEvent(telemetry.EventCacheInvalidated, map[string]interface{}{
		"key": string(key),
	})
}

// RemoveEntriesOlderThan implements QueryCache.
func (c *BroadcastCache) RemoveEntriesOlderThan(maxAge time.Duration, except []Key) {
	protected := make(map[Key]bool, len(except))
	for _, k := range except {
		protected[k] = true
	}
	cutoff := c.now().Add(-maxAge).Unix()

	c.mu.Lock()
	meta := c.loadMeta()
	var evicted []Key
	for key, touched := range meta {
		if protected[key] || touched > cutoff {
			continue
		}
		delete(meta, key)
		evicted = append(evicted, key)
	}
	if len(evicted) > 0 {
		c.saveMeta(meta)
	}
	c.mu.Unlock()

	for _, key := range evicted {
		c.hub.BroadcastEvent(EventCacheEvicted, map[string]interface{}{
			"key": string(key),
		})
	}
}

// loadMeta reads the fill-time index; a missing or corrupt index is treated
// as empty.
func (c *BroadcastCache) loadMeta() map[Key]int64 {
	meta := make(map[Key]int64)
	raw, ok := c.store.Get(localstore.NamespaceOffline, metaKey)
	if !ok {
		return meta
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		logging.Warn("cache meta failed to decode, resetting", map[string]interface{}{
			"component": "cache",
		})
		return make(map[Key]int64)
	}
	return meta
}

func (c *BroadcastCache) saveMeta(meta map[Key]int64) {
	data, err := json.Marshal(meta)
	if err != nil {
		logging.Error("failed to marshal cache meta", err, map[string]interface{}{
			"component": "cache",
		})
		return
	}
	if err := c.store.Set(localstore.NamespaceOffline, metaKey, string(data)); err != nil {
		logging.Error("failed to persist cache meta", err, map[string]interface{}{
			"component": "cache",
		})
	}
}
