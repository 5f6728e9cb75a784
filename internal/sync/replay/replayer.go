// Package replay maps queued actions to remote calls and classifies the
// outcome so the scheduler can decide between retry and drop.
package replay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
	"github.com/ovida/shopcore/internal/telemetry"
	"github.com/ovida/shopcore/internal/transport"
)

// Outcome classifies one replay attempt.
type Outcome int

const (
	// OutcomeSuccess: the remote accepted the action; remove it.
	OutcomeSuccess Outcome = iota
	// OutcomeTransient: the remote was unreachable; keep the action queued.
	OutcomeTransient
	// OutcomePermanent: the remote rejected the action, or it cannot be
	// dispatched at all; remove it without retry.
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

var (
	errUnknownAction = errors.New("unknown action type")
	errBadPayload    = errors.New("malformed action payload")
)

// Replayer issues exactly one remote call per action.
type Replayer struct {
	client transport.Doer
}

// New creates a Replayer over the given transport.
func New(client transport.Doer) *Replayer {
	return &Replayer{client: client}
}

// Replay dispatches one action and classifies the result. It never returns
// an error: every failure mode folds into an Outcome.
func (r *Replayer) Replay(ctx context.Context, action models.QueuedAction) Outcome {
	ctx = transport.WithIdempotencyKey(ctx, action.ID)

	err := r.dispatch(ctx, action)
	outcome := classify(err)

	switch outcome {
	case OutcomeSuccess:
		logging.Debug("action replayed", map[string]interface{}{
			"component":   "sync.replay",
			"action_id":   action.ID,
			"action_type": string(action.Type),
		})
		telemetry.TrackEvent(telemetry.EventActionReplayed, map[string]interface{}{
			"action_type": string(action.Type),
		})
	case OutcomeTransient:
		logging.Debug("action replay deferred", map[string]interface{}{
			"component":   "sync.replay",
			"action_id":   action.ID,
			"action_type": string(action.Type),
			"error":       err.Error(),
		})
	case OutcomePermanent:
		logging.Warn("action dropped after permanent failure", map[string]interface{}{
			"component":   "sync.replay",
			"action_id":   action.ID,
			"action_type": string(action.Type),
			"error":       err.Error(),
		})
		telemetry.TrackEvent(telemetry.EventActionDropped, map[string]interface{}{
			"action_type": string(action.Type),
		})
	}
	return outcome
}

// dispatch issues the one remote call for an action. The switch is
// exhaustive over the known action types; anything else is dropped fail-open
// so a malformed or future-version action cannot grow the queue unboundedly.
func (r *Replayer) dispatch(ctx context.Context, action models.QueuedAction) error {
	switch action.Type {
	case models.ActionAddToCart:
		var p models.CartItemPayload
		if err := action.DecodePayload(&p); err != nil {
			return badPayload(err)
		}
		return r.client.Do(ctx, http.MethodPost, "/api/cart/items", p, nil)

	case models.ActionRemoveFromCart:
		var p models.ProductPayload
		if err := action.DecodePayload(&p); err != nil {
			return badPayload(err)
		}
		return r.client.Do(ctx, http.MethodDelete, "/api/cart/items/"+p.ProductID, nil, nil)

	case models.ActionUpdateCartQuantity:
		var p models.CartItemPayload
		if err := action.DecodePayload(&p); err != nil {
			return badPayload(err)
		}
		return r.client.Do(ctx, http.MethodPut, "/api/cart/items/"+p.ProductID,
			map[string]int{"quantity": p.Quantity}, nil)

	case models.ActionAddToFavorites:
		var p models.ProductPayload
		if err := action.DecodePayload(&p); err != nil {
			return badPayload(err)
		}
		return r.client.Do(ctx, http.MethodPut, "/api/favorites/"+p.ProductID, nil, nil)

	case models.ActionRemoveFromFavorites:
		var p models.ProductPayload
		if err := action.DecodePayload(&p); err != nil {
			return badPayload(err)
		}
		return r.client.Do(ctx, http.MethodDelete, "/api/favorites/"+p.ProductID, nil, nil)

	case models.ActionUpdateProfile:
		var p models.ProfilePayload
		if err := action.DecodePayload(&p); err != nil {
			return badPayload(err)
		}
		return r.client.Do(ctx, http.MethodPatch, "/api/profile", p.Fields, nil)

	default:
		return errUnknownAction
	}
}

func badPayload(err error) error {
	return fmt.Errorf("%w: %v", errBadPayload, err)
}

// classify folds an error into an Outcome. Connectivity and timeout failures
// are transient; structured rejections, decode failures and unknown action
// types are permanent.
func classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, errUnknownAction) || errors.Is(err, errBadPayload) {
		return OutcomePermanent
	}
	if _, ok := transport.AsStatus(err); ok {
		if transport.IsTransient(err) {
			return OutcomeTransient
		}
		return OutcomePermanent
	}
	if transport.IsTransient(err) {
		return OutcomeTransient
	}
	return OutcomePermanent
}
