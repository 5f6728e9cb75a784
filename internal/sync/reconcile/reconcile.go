// Package reconcile detects divergence between locally cached domain
// snapshots and remote truth, and invalidates the reactive cache so UI
// readers refetch. No merge is attempted: divergence resolution is "trust
// remote, force a refetch".
package reconcile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ovida/shopcore/internal/cache"
	"github.com/ovida/shopcore/internal/localstore"
	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
	"github.com/ovida/shopcore/internal/transport"
)

// Store keys for the domain snapshots the UI layer maintains.
const (
	CartKey      = "offline_cart"
	FavoritesKey = "offline_favorites"
)

// CartReconciler compares the local cart snapshot against the remote cart.
type CartReconciler struct {
	store  *localstore.Store
	client transport.Doer
	cache  cache.QueryCache
}

// NewCartReconciler creates a cart reconciler.
func NewCartReconciler(store *localstore.Store, client transport.Doer, qc cache.QueryCache) *CartReconciler {
	return &CartReconciler{store: store, client: client, cache: qc}
}

// Domain returns the domain name for logging.
func (r *CartReconciler) Domain() string { return "cart" }

// Reconcile fetches the remote cart and invalidates the cart query key when
// the snapshots differ structurally.
func (r *CartReconciler) Reconcile(ctx context.Context) (bool, error) {
	var remote models.CartSnapshot
	if err := r.client.Do(ctx, http.MethodGet, "/api/cart", nil, &remote); err != nil {
		return false, err
	}

	local := loadCart(r.store)
	if local.Equal(remote) {
		return false, nil
	}

	logging.Info("cart diverged from remote, invalidating", map[string]interface{}{
		"component":    "sync.reconcile",
		"domain":       "cart",
		"local_items":  len(local.Items),
		"remote_items": len(remote.Items),
	})
	r.cache.Invalidate(cache.KeyCart)
	return true, nil
}

// FavoritesReconciler compares the local favorites id set against remote.
type FavoritesReconciler struct {
	store  *localstore.Store
	client transport.Doer
	cache  cache.QueryCache
}

// NewFavoritesReconciler creates a favorites reconciler.
func NewFavoritesReconciler(store *localstore.Store, client transport.Doer, qc cache.QueryCache) *FavoritesReconciler {
	return &FavoritesReconciler{store: store, client: client, cache: qc}
}

func (r *FavoritesReconciler) Domain() string { return "favorites" }

// Reconcile fetches remote favorites and invalidates on id-set difference.
func (r *FavoritesReconciler) Reconcile(ctx context.Context) (bool, error) {
	var remote models.FavoritesSnapshot
	if err := r.client.Do(ctx, http.MethodGet, "/api/favorites", nil, &remote); err != nil {
		return false, err
	}

	local := loadFavorites(r.store)
	if local.SameSet(remote) {
		return false, nil
	}

	logging.Info("favorites diverged from remote, invalidating", map[string]interface{}{
		"component":  "sync.reconcile",
		"domain":     "favorites",
		"local_ids":  len(local.ProductIDs),
		"remote_ids": len(remote.ProductIDs),
	})
	r.cache.Invalidate(cache.KeyFavorites)
	return true, nil
}

// loadCart reads the local snapshot; a missing or corrupt snapshot is an
// empty cart, which simply reads as divergence against a non-empty remote.
func loadCart(store *localstore.Store) models.CartSnapshot {
	var snap models.CartSnapshot
	raw, ok := store.Get(localstore.NamespaceOffline, CartKey)
	if !ok {
		return snap
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		logging.Warn("cart snapshot failed to decode", map[string]interface{}{
			"component": "sync.reconcile",
		})
		return models.CartSnapshot{}
	}
	return snap
}

func loadFavorites(store *localstore.Store) models.FavoritesSnapshot {
	var snap models.FavoritesSnapshot
	raw, ok := store.Get(localstore.NamespaceOffline, FavoritesKey)
	if !ok {
		return snap
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		logging.Warn("favorites snapshot failed to decode", map[string]interface{}{
			"component": "sync.reconcile",
		})
		return models.FavoritesSnapshot{}
	}
	return snap
}
