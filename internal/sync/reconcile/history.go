package reconcile

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ovida/shopcore/internal/localstore"
	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
	"github.com/ovida/shopcore/internal/telemetry"
)

// HistoryKey is the store key for browsing history.
const HistoryKey = "browsing_history"

// maxHistoryEntries caps the list between retention passes.
const maxHistoryEntries = 1000

// History is the single owner of the browsing-history list. The HTTP surface
// appends through it and the retention pass prunes through it, under one
// lock, so a prune racing an append cannot lose the new entry.
type History struct {
	store *localstore.Store
	mu    sync.Mutex
}

// NewHistory creates a History over the given store.
func NewHistory(store *localstore.Store) *History {
	return &History{store: store}
}

// Append adds one entry, capping the list at its maximum size. Returns the
// resulting entry count.
func (h *History) Append(entry models.BrowseEntry) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.load()
	entries = append(entries, entry)
	if len(entries) > maxHistoryEntries {
		entries = entries[len(entries)-maxHistoryEntries:]
	}
	if err := h.persist(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Prune drops entries viewed before now minus ttl and returns how many were
// removed. A corrupt persisted list is dropped wholesale.
func (h *History) Prune(ttl time.Duration, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	raw, ok := h.store.Get(localstore.NamespaceOffline, HistoryKey)
	if !ok {
		return 0
	}
	var entries []models.BrowseEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logging.Warn("browsing history failed to decode, dropping", map[string]interface{}{
			"component": "sync.cleanup",
		})
		if err := h.store.Delete(localstore.NamespaceOffline, HistoryKey); err != nil {
			logging.Error("failed to drop corrupt browsing history", err, map[string]interface{}{
				"component": "sync.cleanup",
			})
		}
		return 0
	}

	cutoff := now.Add(-ttl).Unix()
	kept := entries[:0]
	for _, e := range entries {
		if e.ViewedAt > cutoff {
			kept = append(kept, e)
		}
	}
	pruned := len(entries) - len(kept)
	if pruned == 0 {
		return 0
	}

	if err := h.persist(kept); err != nil {
		logging.Error("failed to persist pruned browsing history", err, map[string]interface{}{
			"component": "sync.cleanup",
		})
		return 0
	}

	logging.Debug("browsing history pruned", map[string]interface{}{
		"component": "sync.cleanup",
		"pruned":    pruned,
		"kept":      len(kept),
	})
	telemetry.RecordCount(telemetry.EventHistoryPruned, pruned, nil)
	return pruned
}

// load reads the persisted list; a missing or corrupt list reads as empty.
func (h *History) load() []models.BrowseEntry {
	raw, ok := h.store.Get(localstore.NamespaceOffline, HistoryKey)
	if !ok {
		return nil
	}
	var entries []models.BrowseEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	return entries
}

func (h *History) persist(entries []models.BrowseEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return h.store.Set(localstore.NamespaceOffline, HistoryKey, string(data))
}
