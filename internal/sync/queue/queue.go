// Package queue provides the durable action queue: an ordered log of pending
// user mutations stored as one serialized array under a single key.
//
// One key for the whole list trades write amplification for simplicity; the
// queue depth is tens of items at most. An action is gone if and only if the
// list without it was durably persisted, so a crash never exposes an
// "in-flight, neither present nor absent" state to readers.
package queue

import (
	"encoding/json"
	"sync"

	apperrors "github.com/ovida/shopcore/internal/errors"
	"github.com/ovida/shopcore/internal/localstore"
	"github.com/ovida/shopcore/internal/logging"
	"github.com/ovida/shopcore/internal/models"
)

const storeKey = "sync_queue"

// DefaultMaxDepth bounds the queue; a device stuck offline for weeks should
// hit the retention horizon before it hits this.
const DefaultMaxDepth = 500

// Queue is the durable FIFO of pending mutations.
type Queue struct {
	store    *localstore.Store
	maxDepth int
	mu       sync.Mutex
}

// New creates a Queue backed by the given store.
func New(store *localstore.Store) *Queue {
	return &Queue{store: store, maxDepth: DefaultMaxDepth}
}

// Enqueue appends an action to the tail and persists the whole list.
func (q *Queue) Enqueue(action models.QueuedAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions := q.load()
	if len(actions) >= q.maxDepth {
		return apperrors.New(apperrors.ErrQueueFull, "action queue is full")
	}
	actions = append(actions, action)
	if err := q.persist(actions); err != nil {
		return err
	}

	logging.Debug("action enqueued", map[string]interface{}{
		"component":   "sync.queue",
		"action_id":   action.ID,
		"action_type": string(action.Type),
		"depth":       len(actions),
	})
	return nil
}

// PeekAll returns the current queue oldest-first. The list is always
// reloaded from the durable store, never served from a cached copy, so a
// drain observes actions enqueued after it started.
func (q *Queue) PeekAll() []models.QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// Remove deletes exactly one action by id and persists the remainder. The
// persisted list is reread first, so removals interleaved with concurrent
// enqueues lose neither. A missing id is a no-op.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	actions := q.load()
	kept := actions[:0]
	for _, a := range actions {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(actions) {
		return nil
	}
	return q.persist(kept)
}

// Clear removes every queued action.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.persist(nil)
}

// Size returns the current queue depth.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.load())
}

// load rereads the persisted list. A missing key is an empty queue; a
// corrupt value is logged and treated as empty rather than wedging every
// future sync run.
func (q *Queue) load() []models.QueuedAction {
	raw, ok := q.store.Get(localstore.NamespaceOffline, storeKey)
	if !ok {
		return nil
	}
	var actions []models.QueuedAction
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		logging.Warn("sync queue failed to decode, dropping", map[string]interface{}{
			"component": "sync.queue",
		})
		return nil
	}
	return actions
}

func (q *Queue) persist(actions []models.QueuedAction) error {
	if len(actions) == 0 {
		if err := q.store.Delete(localstore.NamespaceOffline, storeKey); err != nil {
			return apperrors.Wrap(apperrors.ErrQueuePersist, "clear queue", err)
		}
		return nil
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrQueuePersist, "marshal queue", err)
	}
	if err := q.store.Set(localstore.NamespaceOffline, storeKey, string(data)); err != nil {
		return apperrors.Wrap(apperrors.ErrQueuePersist, "persist queue", err)
	}
	return nil
}
