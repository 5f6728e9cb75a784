// Package models provides data model definitions for the shopcore engine.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ovida/shopcore/internal/uuid"
)

// ActionType tags a queued mutation.
type ActionType string

const (
	ActionAddToCart           ActionType = "ADD_TO_CART"
	ActionRemoveFromCart      ActionType = "REMOVE_FROM_CART"
	ActionUpdateCartQuantity  ActionType = "UPDATE_CART_QUANTITY"
	ActionAddToFavorites      ActionType = "ADD_TO_FAVORITES"
	ActionRemoveFromFavorites ActionType = "REMOVE_FROM_FAVORITES"
	ActionUpdateProfile       ActionType = "UPDATE_PROFILE"
)

// QueuedAction is one pending user mutation awaiting replay against the
// remote API. The id doubles as the idempotency key for the remote call.
type QueuedAction struct {
	ID         string          `json:"id"`
	Type       ActionType      `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt int64           `json:"enqueued_at"` // unix seconds, immutable
}

// Age returns how long the action has been queued.
func (a QueuedAction) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(a.EnqueuedAt, 0))
}

// CartItemPayload is the payload for ADD_TO_CART and UPDATE_CART_QUANTITY.
type CartItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ProductPayload is the payload for single-product actions
// (REMOVE_FROM_CART, ADD_TO_FAVORITES, REMOVE_FROM_FAVORITES).
type ProductPayload struct {
	ProductID string `json:"product_id"`
}

// ProfilePayload is the payload for UPDATE_PROFILE.
type ProfilePayload struct {
	Fields map[string]string `json:"fields"`
}

// NewQueuedAction builds a QueuedAction with a fresh id and timestamp.
// The payload must be JSON-marshalable; a marshal failure is an input error.
func NewQueuedAction(actionType ActionType, payload interface{}) (QueuedAction, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return QueuedAction{}, fmt.Errorf("marshal action payload: %w", err)
		}
		raw = data
	}
	return QueuedAction{
		ID:         uuid.New(),
		Type:       actionType,
		Payload:    raw,
		EnqueuedAt: time.Now().Unix(),
	}, nil
}

// DecodePayload unmarshals the action payload into out.
func (a QueuedAction) DecodePayload(out interface{}) error {
	if len(a.Payload) == 0 {
		return fmt.Errorf("action %s has no payload", a.ID)
	}
	if err := json.Unmarshal(a.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", a.Type, err)
	}
	return nil
}
