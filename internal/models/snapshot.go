package models

// CartItem is one line of the cart snapshot.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartSnapshot is the last-known-correct cart state. The UI layer rewrites
// it on every local mutation; reconciliation reads it back for comparison.
type CartSnapshot struct {
	Items     []CartItem `json:"items"`
	UpdatedAt int64      `json:"updated_at"`
}

// Equal reports ordered structural equality of the two carts.
func (s CartSnapshot) Equal(other CartSnapshot) bool {
	if len(s.Items) != len(other.Items) {
		return false
	}
	for i, item := range s.Items {
		if item != other.Items[i] {
			return false
		}
	}
	return true
}

// FavoritesSnapshot is the last-known-correct favorites state.
type FavoritesSnapshot struct {
	ProductIDs []string `json:"product_ids"`
	UpdatedAt  int64    `json:"updated_at"`
}

// SameSet reports whether both snapshots hold the same product id set,
// ignoring order and duplicates.
func (s FavoritesSnapshot) SameSet(other FavoritesSnapshot) bool {
	local := make(map[string]bool, len(s.ProductIDs))
	for _, id := range s.ProductIDs {
		local[id] = true
	}
	remote := make(map[string]bool, len(other.ProductIDs))
	for _, id := range other.ProductIDs {
		remote[id] = true
	}
	if len(local) != len(remote) {
		return false
	}
	for id := range local {
		if !remote[id] {
			return false
		}
	}
	return true
}

// BrowseEntry is one browsing-history record, pruned after seven days.
type BrowseEntry struct {
	ProductID string `json:"product_id"`
	ViewedAt  int64  `json:"viewed_at"` // unix seconds
}
