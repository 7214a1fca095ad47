// Package sync provides the synchronization manager that drains the
// pending mutation queue into the remote store.
//
// The manager is triggered by external events (connectivity changes,
// activity, a periodic tick) and runs at most one drain cycle at a
// time; a trigger firing mid-drain is dropped, because the next
// natural trigger will re-fire. Each drain cycle:
//
//  1. Checks preconditions: online, authenticated, client available.
//     A failed precondition is a deferred state, not an error - the
//     cycle ends with no side effects.
//  2. Takes a point-in-time snapshot of the queue, ordered by enqueue
//     time ascending, and applies each operation against the remote
//     store. Failures are per-operation: one failing op never blocks
//     the rest of the cycle.
//  3. On failure, either increments the op's retry count in place or
//     abandons it permanently once it exceeds the retry or age bound,
//     emitting an abandonment notification.
//  4. Records the completion time and emits a success notification
//     when at least one op was applied.
//
// Because failed ops are updated in place rather than re-enqueued at
// the back, queue order is preserved across retries: a retried update
// is never applied after a newer update for the same entity.
package sync
