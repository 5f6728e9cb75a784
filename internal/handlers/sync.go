// Package handlers provides the localhost REST surface the UI layer calls
// into: enqueueing mutations, triggering syncs, and maintaining the local
// domain snapshots the reconciliation passes compare against.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
	syncsvc "github.com/ovida/shopcore/internal/sync"
)

var knownActionTypes = map[models.ActionType]bool{
	models.ActionAddToCart:           true,
	models.ActionRemoveFromCart:      true,
	models.ActionUpdateCartQuantity:  true,
	models.ActionAddToFavorites:      true,
	models.ActionRemoveFromFavorites: true,
	models.ActionUpdateProfile:       true,
}

// SyncHandler exposes the sync engine over HTTP.
type SyncHandler struct {
	svc *syncsvc.Service
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(svc *syncsvc.Service) *SyncHandler {
	return &SyncHandler{svc: svc}
}

type enqueueRequest struct {
	Type    models.ActionType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// Enqueue handles POST /sync/actions. The UI calls this alongside its
// optimistic local write; the response confirms durable queueing only, not
// remote delivery.
func (h *SyncHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !knownActionTypes[req.Type] {
		writeError(w, http.StatusBadRequest, "unknown action type")
		return
	}

	var payload interface{}
	if len(req.Payload) > 0 {
		payload = req.Payload
	}
	action, err := h.svc.Enqueue(req.Type, payload)
	if err != nil {
		logging.Error("enqueue failed", err, map[string]interface{}{
			"component":   "handlers.sync",
			"action_type": string(req.Type),
		})
		writeError(w, http.StatusInternalServerError, "failed to queue action")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":          action.ID,
		"enqueued_at": action.EnqueuedAt,
	})
}

// SyncNow handles POST /sync/now: request an immediate run. 202 when a run
// was started, 409 when one is already active or the device is offline.
func (h *SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	if h.svc.ScheduleImmediateSync(r.Context()) {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"started": true})
		return
	}
	writeJSON(w, http.StatusConflict, map[string]interface{}{"started": false})
}

// Status handles GET /sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"engine":    h.svc.Status(),
		"scheduler": h.svc.SchedulerStatus(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("failed to encode response", err, map[string]interface{}{
			"component": "handlers",
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
