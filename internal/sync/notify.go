package sync

import (
	"fmt"

	"github.com/kessler/pocketbook/internal/schema"
)

// AbandonReason says why an operation was permanently dropped.
type AbandonReason string

const (
	// ReasonExpired means the op sat in the queue longer than MaxAge.
	ReasonExpired AbandonReason = "expired"
	// ReasonMaxRetries means the op failed MaxRetries apply attempts.
	ReasonMaxRetries AbandonReason = "max_retries"
)

// Notification is a user-facing sync event. The UI collaborator
// subscribes and renders; the engine never touches presentation.
type Notification interface {
	// Message returns a human-readable summary of the event.
	Message() string
}

// SyncSucceeded is emitted at the end of a drain cycle that applied at
// least one operation.
type SyncSucceeded struct {
	// Count is the number of operations applied in the cycle.
	Count int
}

// Message implements Notification.
func (n SyncSucceeded) Message() string {
	if n.Count == 1 {
		return "1 pending change synced"
	}
	return fmt.Sprintf("%d pending changes synced", n.Count)
}

// OpAbandoned is emitted when an operation is removed from the queue
// without ever succeeding.
type OpAbandoned struct {
	Kind   schema.Kind
	Action schema.Action
	Reason AbandonReason
}

// Message implements Notification.
func (n OpAbandoned) Message() string {
	return fmt.Sprintf("a %s %s could not be synced (%s) and was dropped",
		n.Kind, n.Action, n.Reason)
}
