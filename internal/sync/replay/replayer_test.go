package replay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ovida/shopcore/internal/models"
	"github.com/ovida/shopcore/internal/transport"
)

// recordedCall captures one Do invocation.
type recordedCall struct {
	method string
	path   string
	body   interface{}
}

// fakeDoer records every call and returns a scripted error.
type fakeDoer struct {
	calls []recordedCall
	err   error
}

func (f *fakeDoer) Do(ctx context.Context, method, path string, body, out interface{}) error {
	f.calls = append(f.calls, recordedCall{method: method, path: path, body: body})
	return f.err
}

func mustAction(t *testing.T, actionType models.ActionType, payload interface{}) models.QueuedAction {
	t.Helper()
	action, err := models.NewQueuedAction(actionType, payload)
	if err != nil {
		t.Fatalf("build action: %v", err)
	}
	return action
}

func TestDispatchRoutes(t *testing.T) {
	cases := []struct {
		name       string
		action     models.QueuedAction
		wantMethod string
		wantPath   string
	}{
		{
			name:       "add to cart",
			action:     mustAction(t, models.ActionAddToCart, models.CartItemPayload{ProductID: "p-1", Quantity: 2}),
			wantMethod: "POST",
			wantPath:   "/api/cart/items",
		},
		{
			name:       "remove from cart",
			action:     mustAction(t, models.ActionRemoveFromCart, models.ProductPayload{ProductID: "p-1"}),
			wantMethod: "DELETE",
			wantPath:   "/api/cart/items/p-1",
		},
		{
			name:       "update quantity",
			action:     mustAction(t, models.ActionUpdateCartQuantity, models.CartItemPayload{ProductID: "p-1", Quantity: 5}),
			wantMethod: "PUT",
			wantPath:   "/api/cart/items/p-1",
		},
		{
			name:       "add to favorites",
			action:     mustAction(t, models.ActionAddToFavorites, models.ProductPayload{ProductID: "p-7"}),
			wantMethod: "PUT",
			wantPath:   "/api/favorites/p-7",
		},
		{
			name:       "remove from favorites",
			action:     mustAction(t, models.ActionRemoveFromFavorites, models.ProductPayload{ProductID: "p-7"}),
			wantMethod: "DELETE",
			wantPath:   "/api/favorites/p-7",
		},
		{
			name:       "update profile",
			action:     mustAction(t, models.ActionUpdateProfile, models.ProfilePayload{Fields: map[string]string{"name": "Ada"}}),
			wantMethod: "PATCH",
			wantPath:   "/api/profile",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &fakeDoer{}
			r := New(doer)

			outcome := r.Replay(context.Background(), tc.action)
			if outcome != OutcomeSuccess {
				t.Fatalf("expected success, got %s", outcome)
			}
			if len(doer.calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(doer.calls))
			}
			call := doer.calls[0]
			if call.method != tc.wantMethod || call.path != tc.wantPath {
				t.Errorf("expected %s %s, got %s %s", tc.wantMethod, tc.wantPath, call.method, call.path)
			}
		})
	}
}

func TestUpdateQuantityBody(t *testing.T) {
	doer := &fakeDoer{}
	r := New(doer)

	r.Replay(context.Background(), mustAction(t, models.ActionUpdateCartQuantity,
		models.CartItemPayload{ProductID: "p-1", Quantity: 3}))

	body, ok := doer.calls[0].body.(map[string]int)
	if !ok {
		t.Fatalf("expected quantity map body, got %T", doer.calls[0].body)
	}
	if body["quantity"] != 3 {
		t.Errorf("expected quantity 3, got %d", body["quantity"])
	}
}

func TestRejectionIsPermanent(t *testing.T) {
	doer := &fakeDoer{err: &transport.StatusError{Status: 400, Message: "bad item"}}
	r := New(doer)

	outcome := r.Replay(context.Background(), mustAction(t, models.ActionAddToCart,
		models.CartItemPayload{ProductID: "p-1", Quantity: 1}))
	if outcome != OutcomePermanent {
		t.Errorf("expected permanent on 400, got %s", outcome)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	doer := &fakeDoer{err: &transport.StatusError{Status: 503}}
	r := New(doer)

	outcome := r.Replay(context.Background(), mustAction(t, models.ActionAddToCart,
		models.CartItemPayload{ProductID: "p-1", Quantity: 1}))
	if outcome != OutcomeTransient {
		t.Errorf("expected transient on 503, got %s", outcome)
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	doer := &fakeDoer{err: errors.New("dial tcp: connection refused")}
	r := New(doer)

	outcome := r.Replay(context.Background(), mustAction(t, models.ActionRemoveFromCart,
		models.ProductPayload{ProductID: "p-1"}))
	if outcome != OutcomeTransient {
		t.Errorf("expected transient on network error, got %s", outcome)
	}
}

func TestUnknownTypeIsPermanentWithoutCall(t *testing.T) {
	doer := &fakeDoer{}
	r := New(doer)

	action := mustAction(t, models.ActionAddToCart, models.CartItemPayload{ProductID: "p-1", Quantity: 1})
	action.Type = "FUTURE_ACTION"

	outcome := r.Replay(context.Background(), action)
	if outcome != OutcomePermanent {
		t.Errorf("expected permanent for unknown type, got %s", outcome)
	}
	if len(doer.calls) != 0 {
		t.Errorf("unknown action must not reach the transport, got %d calls", len(doer.calls))
	}
}

func TestMalformedPayloadIsPermanentWithoutCall(t *testing.T) {
	doer := &fakeDoer{}
	r := New(doer)

	action := mustAction(t, models.ActionAddToCart, models.CartItemPayload{ProductID: "p-1", Quantity: 1})
	action.Payload = json.RawMessage(`{not json`)

	outcome := r.Replay(context.Background(), action)
	if outcome != OutcomePermanent {
		t.Errorf("expected permanent for malformed payload, got %s", outcome)
	}
	if len(doer.calls) != 0 {
		t.Errorf("malformed payload must not reach the transport, got %d calls", len(doer.calls))
	}
}
