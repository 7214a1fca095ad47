// Package queue provides the durable, ordered mutation queue holding
// operations that could not be applied to the remote store immediately.
//
// The queue is persisted as a JSON array under a fixed cache key after
// every mutating call, so a crash between calls never loses more than
// the operation in flight. Ordering is by enqueue time ascending; a
// failed operation is updated in place rather than re-enqueued at the
// back, so a retried update can never be applied after a newer one for
// the same entity.
package queue

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kessler/pocketbook/internal/cache"
	"github.com/kessler/pocketbook/internal/schema"
)

// PendingOpsKey is the cache key the queue is persisted under. It is
// distinct from every entity snapshot key.
const PendingOpsKey = "sync/pending-ops"

// Op is one pending mutation against the remote store.
type Op struct {
	// ID is assigned at enqueue time and unique for the op's lifetime.
	ID string `json:"id"`

	Kind   schema.Kind   `json:"kind"`
	Action schema.Action `json:"action"`

	// EntityID is the id of the affected entity document.
	EntityID string `json:"entity_id"`

	// Payload is the entity's full JSON document for create/update.
	// Empty for delete (EntityID is sufficient).
	Payload json.RawMessage `json:"payload,omitempty"`

	// EnqueuedAt is epoch milliseconds, set once at creation and never
	// changed. Drain order and age-based expiry both derive from it.
	EnqueuedAt int64 `json:"enqueued_at"`

	// RetryCount is incremented by the sync manager on each failed
	// apply attempt.
	RetryCount int `json:"retry_count"`
}

// Age returns how long the op has been waiting, relative to now.
func (o *Op) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(o.EnqueuedAt))
}

// Queue is the persistent ordered holding area for pending operations.
// All methods are safe for concurrent use; every read-modify-write
// against the persisted sequence is serialized by one mutex so a UI
// enqueue and a concurrent drain's remove/update cannot lose updates.
type Queue struct {
	mu    sync.Mutex
	store cache.Store
	ops   []Op
}

// Load constructs a Queue over store and restores the persisted
// sequence. A missing key means an empty queue.
func Load(store cache.Store) (*Queue, error) {
	q := &Queue{store: store}

	data, ok, err := store.Get(PendingOpsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending ops: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, &q.ops); err != nil {
			return nil, fmt.Errorf("failed to decode pending ops: %w", err)
		}
	}

	return q, nil
}

// Enqueue appends op to the persisted sequence, assigning ID and
// EnqueuedAt when absent. Persistence failure is returned as-is; it is
// an environment fault, not a queue-logic condition.
func (q *Queue) Enqueue(op Op) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.EnqueuedAt == 0 {
		op.EnqueuedAt = time.Now().UnixMilli()
	}

	q.ops = append(q.ops, op)
	return q.persist()
}

// List returns a copy of the sequence sorted by EnqueuedAt ascending.
// The stable sort keeps append order for same-millisecond ops. The
// returned slice is a snapshot; later queue mutations do not affect it.
func (q *Queue) List() []Op {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Op, len(q.ops))
	copy(out, q.ops)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EnqueuedAt < out[j].EnqueuedAt
	})
	return out
}

// Len returns the number of pending operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Remove deletes the op with the given id. Removing a missing id is a
// no-op, not an error.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return q.persist()
		}
	}
	return nil
}

// Update replaces the stored op's retry count in place, preserving its
// position and EnqueuedAt. Updating a missing id is a no-op.
func (q *Queue) Update(id string, retryCount int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops[i].RetryCount = retryCount
			return q.persist()
		}
	}
	return nil
}

// Clear empties the queue. Only destructive account reset uses this;
// the sync flow never does.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = nil
	return q.persist()
}

// persist writes the full sequence back to the store. Caller holds mu.
func (q *Queue) persist() error {
	data, err := json.Marshal(q.ops)
	if err != nil {
		return fmt.Errorf("failed to encode pending ops: %w", err)
	}
	if q.ops == nil {
		data = []byte("[]")
	}
	if err := q.store.Set(PendingOpsKey, data); err != nil {
		return fmt.Errorf("failed to persist pending ops: %w", err)
	}
	return nil
}
