// Package scheduler owns all sync timing and exclusivity: periodic wake-ups,
// immediate triggers on app lifecycle transitions, connectivity gating, and
// the single in-progress flag that keeps runs mutually exclusive.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ovida/shopcore/internal/cache"
	apperrors "github.com/ovida/shopcore/internal/errors"
	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
	"github.com/ovida/shopcore/internal/sync/queue"
	"github.com/ovida/shopcore/internal/sync/replay"
	"github.com/ovida/shopcore/internal/telemetry"
	"github.com/ovida/shopcore/internal/transport"
)

// Replayer issues one remote call per action and classifies the outcome.
type Replayer interface {
	Replay(ctx context.Context, action models.QueuedAction) replay.Outcome
}

// Reconciler compares one domain's local snapshot against remote truth.
type Reconciler interface {
	Domain() string
	Reconcile(ctx context.Context) (changed bool, err error)
}

// Cleaner runs the retention pass at the end of a sync run.
type Cleaner interface {
	Run(ctx context.Context) error
}

// Config holds scheduler configuration.
type Config struct {
	SyncInterval     time.Duration // minimum interval between periodic wake-ups (default: 15 minutes)
	RetentionHorizon time.Duration // maximum queued-action age before unconditional drop (default: 7 days)
	RunTimeout       time.Duration // upper bound on one full run (default: 5 minutes)
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     15 * time.Minute,
		RetentionHorizon: 7 * 24 * time.Hour,
		RunTimeout:       5 * time.Minute,
	}
}

// Params collects the scheduler's collaborators.
type Params struct {
	Queue       *queue.Queue
	Replayer    Replayer
	Reconcilers []Reconciler
	Cleaner     Cleaner
	Oracle      transport.Connectivity
	Platform    Platform          // nil: TickerPlatform
	Events      cache.Broadcaster // nil: no lifecycle events
	Config      *Config           // nil: DefaultConfig
}

// Scheduler coordinates sync runs. At most one run is active process-wide at
// any instant; a trigger that finds one active is dropped, not queued.
type Scheduler struct {
	queue       *queue.Queue
	replayer    Replayer
	reconcilers []Reconciler
	cleaner     Cleaner
	oracle      transport.Connectivity
	platform    Platform
	events      cache.Broadcaster
	cfg         Config

	mu             sync.RWMutex
	running        bool
	syncInProgress bool
	lastSyncAt     time.Time
	stopPlatform   func()

	now func() time.Time
}

// New creates a Scheduler.
func New(p Params) *Scheduler {
	cfg := p.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	platform := p.Platform
	if platform == nil {
		platform = NewTickerPlatform()
	}
	return &Scheduler{
		queue:       p.Queue,
		replayer:    p.Replayer,
		reconcilers: p.Reconcilers,
		cleaner:     p.Cleaner,
		oracle:      p.Oracle,
		platform:    platform,
		events:      p.Events,
		cfg:         *cfg,
		now:         time.Now,
	}
}

// Start registers the periodic wake-up with the platform timer. The interval
// is a lower bound, not a guarantee.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	stop := s.platform.Schedule(s.cfg.SyncInterval, func() {
		s.TriggerSync(ctx)
	})

	s.mu.Lock()
	s.stopPlatform = stop
	s.mu.Unlock()

	logging.Info("sync scheduler started", map[string]interface{}{
		"component":        "sync.scheduler",
		"interval_minutes": s.cfg.SyncInterval.Minutes(),
	})
}

// Stop deregisters the periodic wake-up. An in-flight run finishes on its own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop := s.stopPlatform
	s.stopPlatform = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	logging.Info("sync scheduler stopped", map[string]interface{}{
		"component": "sync.scheduler",
	})
}

// TriggerSync starts a run in the background. Returns false without side
// effects when a run is already active or the device is offline — both are
// expected steady-state conditions, logged at debug level only.
func (s *Scheduler) TriggerSync(ctx context.Context) bool {
	if !s.acquire() {
		logging.Debug("sync already in progress, trigger dropped", map[string]interface{}{
			"component": "sync.scheduler",
		})
		return false
	}
	if s.oracle != nil && !s.oracle.IsOnline() {
		s.release()
		logging.Debug("device offline, trigger dropped", map[string]interface{}{
			"component": "sync.scheduler",
		})
		telemetry.TrackEvent(telemetry.EventSyncRunSkipped, map[string]interface{}{
			"reason": "offline",
		})
		return false
	}

	// The run must outlive the trigger: an HTTP request context is cancelled
	// the moment the handler returns, which would abort the run it just
	// started. Only the run timeout bounds the background run.
	go s.run(context.WithoutCancel(ctx))
	return true
}

// SyncNow runs a sync synchronously. Used by the "sync now" API and by the
// app-background flush before suspension.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	if !s.acquire() {
		return apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	}
	if s.oracle != nil && !s.oracle.IsOnline() {
		s.release()
		return apperrors.New(apperrors.ErrSyncOffline, "device is offline")
	}
	s.run(ctx)
	return nil
}

// acquire atomically claims the single run token.
func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncInProgress {
		return false
	}
	s.syncInProgress = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.syncInProgress = false
	s.mu.Unlock()
}

// run executes one full sync pass: drain, reconcile per domain, cleanup.
// Every sub-step is individually caught; a failure in one never aborts the
// rest. The run token is cleared unconditionally, and the platform Finish
// acknowledgement fires even when a sub-step panics.
func (s *Scheduler) run(ctx context.Context) {
	started := s.now()
	defer func() {
		s.release()
		s.platform.Finish()
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	s.broadcast(cache.EventSyncStarted, nil)
	telemetry.TrackEvent(telemetry.EventSyncRunStarted, nil)
	logging.Info("sync run started", map[string]interface{}{
		"component": "sync.scheduler",
		"pending":   s.queue.Size(),
	})

	drained, kept := s.drain(runCtx)

	for _, rec := range s.reconcilers {
		changed, err := rec.Reconcile(runCtx)
		if err != nil {
			// Reconciliation is skipped for this run only; the next run
			// retries from scratch.
			logging.Warn("reconciliation pass skipped", map[string]interface{}{
				"component": "sync.scheduler",
				"domain":    rec.Domain(),
				"error":     err.Error(),
			})
			continue
		}
		if changed {
			logging.Info("reconciliation detected divergence", map[string]interface{}{
				"component": "sync.scheduler",
				"domain":    rec.Domain(),
			})
		}
	}

	if s.cleaner != nil {
		if err := s.cleaner.Run(runCtx); err != nil {
			logging.Warn("retention cleanup skipped", map[string]interface{}{
				"component": "sync.scheduler",
				"error":     err.Error(),
			})
		}
	}

	s.mu.Lock()
	s.lastSyncAt = s.now()
	s.mu.Unlock()

	duration := s.now().Sub(started)
	s.broadcast(cache.EventSyncCompleted, map[string]interface{}{
		"drained":     drained,
		"remaining":   kept,
		"duration_ms": duration.Milliseconds(),
	})
	telemetry.RecordTiming(telemetry.EventSyncRunCompleted, duration, nil)
	logging.Info("sync run completed", map[string]interface{}{
		"component": "sync.scheduler",
		"drained":   drained,
		"remaining": kept,
	})
}

// drain processes every currently-queued action once, oldest first. Success
// and permanent failure remove the action; transient failure leaves it for
// the next run. An action past the retention horizon is dropped before any
// replay attempt, regardless of what the replayer would say.
func (s *Scheduler) drain(ctx context.Context) (processed, remaining int) {
	actions := s.queue.PeekAll()
	for _, action := range actions {
		if ctx.Err() != nil {
			remaining++
			continue
		}

		if action.Age(s.now()) > s.cfg.RetentionHorizon {
			s.removeAction(action, "expired")
			telemetry.TrackEvent(telemetry.EventActionExpired, map[string]interface{}{
				"action_type": string(action.Type),
			})
			logging.Warn("queued action expired past retention horizon", map[string]interface{}{
				"component":   "sync.scheduler",
				"action_id":   action.ID,
				"action_type": string(action.Type),
				"enqueued_at": action.EnqueuedAt,
			})
			processed++
			continue
		}

		switch s.replayer.Replay(ctx, action) {
		case replay.OutcomeSuccess:
			s.removeAction(action, "replayed")
			processed++
		case replay.OutcomePermanent:
			s.removeAction(action, "rejected")
			s.broadcast(cache.EventActionDropped, map[string]interface{}{
				"action_id":   action.ID,
				"action_type": string(action.Type),
			})
			processed++
		case replay.OutcomeTransient:
			remaining++
		}
	}
	return processed, remaining
}

// removeAction deletes one action from the durable queue. A persist failure
// leaves the action in place; the next drain sees it again, which is safe
// because replays are idempotent.
func (s *Scheduler) removeAction(action models.QueuedAction, reason string) {
	if err := s.queue.Remove(action.ID); err != nil {
		logging.Error("failed to remove queued action", err, map[string]interface{}{
			"component": "sync.scheduler",
			"action_id": action.ID,
			"reason":    reason,
		})
	}
}

func (s *Scheduler) broadcast(eventType string, data map[string]interface{}) {
	if s.events != nil {
		s.events.BroadcastEvent(eventType, data)
	}
}

// Status is a point-in-time view of the scheduler for diagnostics.
type Status struct {
	Running        bool       `json:"running"`
	SyncInProgress bool       `json:"sync_in_progress"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	PendingActions int        `json:"pending_actions"`
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	st := Status{
		Running:        s.running,
		SyncInProgress: s.syncInProgress,
	}
	if !s.lastSyncAt.IsZero() {
		t := s.lastSyncAt
		st.LastSyncAt = &t
	}
	s.mu.RUnlock()

	st.PendingActions = s.queue.Size()
	return st
}
