package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ovida/shopcore/internal/cache"
	"github.com/ovida/shopcore/internal/localstore"
	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
	syncsvc "github.com/ovida/shopcore/internal/sync"
	"github.com/ovida/shopcore/internal/sync/reconcile"
)

// LocalStateHandler maintains the UI's last-known-correct domain snapshots
// and browsing history in the durable store.
type LocalStateHandler struct {
	store   *localstore.Store
	cache   *cache.BroadcastCache
	history *reconcile.History
	svc     *syncsvc.Service
}

// NewLocalStateHandler creates a LocalStateHandler.
func NewLocalStateHandler(store *localstore.Store, bc *cache.BroadcastCache, history *reconcile.History, svc *syncsvc.Service) *LocalStateHandler {
	return &LocalStateHandler{store: store, cache: bc, history: history, svc: svc}
}

// PutCart handles PUT /local/cart. The UI rewrites the snapshot on every
// local cart mutation so reconciliation always compares against the freshest
// optimistic state.
func (h *LocalStateHandler) PutCart(w http.ResponseWriter, r *http.Request) {
	var snap models.CartSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cart snapshot")
		return
	}
	snap.UpdatedAt = time.Now().Unix()
	h.persistSnapshot(w, reconcile.CartKey, snap)
}

// PutFavorites handles PUT /local/favorites.
func (h *LocalStateHandler) PutFavorites(w http.ResponseWriter, r *http.Request) {
	var snap models.FavoritesSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid favorites snapshot")
		return
	}
	snap.UpdatedAt = time.Now().Unix()
	h.persistSnapshot(w, reconcile.FavoritesKey, snap)
}

// AddHistory handles POST /local/history: append one browsing entry.
func (h *LocalStateHandler) AddHistory(w http.ResponseWriter, r *http.Request) {
	var entry models.BrowseEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry.ProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid history entry")
		return
	}
	if entry.ViewedAt == 0 {
		entry.ViewedAt = time.Now().Unix()
	}

	count, err := h.history.Append(entry)
	if err != nil {
		logging.Error("failed to persist browsing history", err, map[string]interface{}{
			"component": "handlers.local",
		})
		writeError(w, http.StatusInternalServerError, "failed to store history")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"entries": count})
}

// CacheTouch handles POST /cache/touch: the UI reports a cache fill so the
// eviction pass can age entries.
func (h *LocalStateHandler) CacheTouch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "invalid cache key")
		return
	}
	h.cache.Touch(cache.Key(req.Key))
	w.WriteHeader(http.StatusNoContent)
}

// ClearAll handles DELETE /local: account/session teardown.
func (h *LocalStateHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(); err != nil {
		logging.Error("clear-all failed", err, map[string]interface{}{
			"component": "handlers.local",
		})
		writeError(w, http.StatusInternalServerError, "failed to clear local state")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LocalStateHandler) persistSnapshot(w http.ResponseWriter, key string, snap interface{}) {
	data, err := json.Marshal(snap)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store snapshot")
		return
	}
	if err := h.store.Set(localstore.NamespaceOffline, key, string(data)); err != nil {
		logging.Error("failed to persist snapshot", err, map[string]interface{}{
			"component": "handlers.local",
			"key":       key,
		})
		writeError(w, http.StatusInternalServerError, "failed to store snapshot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
