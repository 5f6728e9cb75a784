// Package sync exposes the offline-first synchronization engine: user
// mutations are applied optimistically by the caller and appended here
// durably; a background scheduler later replays them against the remote
// service and reconciles cached domain state.
package sync

import (
	"context"

	apperrors "github.com/ovida/shopcore/internal/errors"
	"github.com/ovida/shopcore/internal/localstore"
	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
	"github.com/ovida/shopcore/internal/sync/queue"
	"github.com/ovida/shopcore/internal/sync/scheduler"
)

// Service is the engine facade handed to the HTTP surface. Constructed once
// per process and passed by reference; it owns the store handle, the queue
// and the scheduler.
type Service struct {
	store       *localstore.Store
	queue       *queue.Queue
	sched       *scheduler.Scheduler
	initialized bool
}

// NewService assembles the engine facade.
func NewService(store *localstore.Store, q *queue.Queue, sched *scheduler.Scheduler) *Service {
	return &Service{
		store:       store,
		queue:       q,
		sched:       sched,
		initialized: true,
	}
}

// Start begins periodic background sync.
func (s *Service) Start(ctx context.Context) {
	s.sched.Start(ctx)
}

// Enqueue appends a user mutation to the durable queue. The caller has
// already applied the mutation optimistically to its local state; this call
// only guarantees eventual replay. Never blocks on the network.
func (s *Service) Enqueue(actionType models.ActionType, payload interface{}) (*models.QueuedAction, error) {
	action, err := models.NewQueuedAction(actionType, payload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "build queued action", err)
	}
	if err := s.queue.Enqueue(action); err != nil {
		return nil, err
	}
	return &action, nil
}

// ScheduleImmediateSync requests a sync run as soon as possible. Called on
// app-background (flush before suspension) and app-foreground (refresh
// before the user resumes) transitions. Dropped silently when a run is
// already active or the device is offline.
func (s *Service) ScheduleImmediateSync(ctx context.Context) bool {
	return s.sched.TriggerSync(ctx)
}

// SyncNow runs a full sync synchronously.
func (s *Service) SyncNow(ctx context.Context) error {
	return s.sched.SyncNow(ctx)
}

// Status reports engine state for diagnostics and UI badges.
type Status struct {
	Initialized    bool `json:"initialized"`
	SyncInProgress bool `json:"sync_in_progress"`
	PendingActions int  `json:"pending_actions"`
}

// Status returns the current engine status.
func (s *Service) Status() Status {
	sched := s.sched.Status()
	return Status{
		Initialized:    s.initialized,
		SyncInProgress: sched.SyncInProgress,
		PendingActions: sched.PendingActions,
	}
}

// SchedulerStatus exposes the full scheduler view.
func (s *Service) SchedulerStatus() scheduler.Status {
	return s.sched.Status()
}

// ClearAll wipes every locally persisted namespace, queue included. Used on
// account/session teardown only.
func (s *Service) ClearAll() error {
	if err := s.store.ClearAll(); err != nil {
		return err
	}
	logging.Info("local state cleared", map[string]interface{}{
		"component": "sync.service",
	})
	return nil
}

// Close stops background work. The store is closed by its owner.
func (s *Service) Close() {
	s.sched.Stop()
}
