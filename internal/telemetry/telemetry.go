// Package telemetry provides no-op telemetry hooks.
//
// Nothing is transmitted off-device without explicit opt-in; every function
// here is a stub so the sync engine can call through unconditionally. A real
// sink can be swapped in behind the same functions when the user opts in.
package telemetry

import "time"

// Event names emitted by the sync engine.
const (
	EventSyncRunStarted    = "sync.run_started"
	EventSyncRunCompleted  = "sync.run_completed"
	EventSyncRunSkipped    = "sync.run_skipped"
	EventActionReplayed    = "sync.action_replayed"
	EventActionDropped     = "sync.action_dropped"
	EventActionExpired     = "sync.action_expired"
	EventCacheInvalidated  = "cache.invalidated"
	EventHistoryPruned     = "history.pruned"
	EventStoreWriteFailure = "store.write_failed"
)

// IsEnabled always reports false; telemetry is disabled by default.
func IsEnabled() bool {
	return false
}

// TrackEvent records a named event with optional properties.
func TrackEvent(name string, properties map[string]interface{}) {
	// no-op without opt-in
}

// RecordCount records a counter increment.
func RecordCount(name string, delta int, tags map[string]string) {
	// no-op without opt-in
}

// RecordTiming records a timing duration.
func RecordTiming(name string, duration time.Duration, tags map[string]string) {
	// no-op without opt-in
}
