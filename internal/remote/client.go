// Package remote provides the client for the remote document store.
//
// All operations are scoped under the authenticated user's namespace;
// the server derives the namespace from the bearer token, so no client
// call carries a user id. The client deliberately does not classify
// errors into transient vs permanent: the sync manager retries every
// failure up to its thresholds.
package remote

import (
	"context"
	"encoding/json"

	"github.com/kessler/pocketbook/internal/schema"
)

// ChangeFunc receives the full current collection for a kind whenever
// it changes remotely. Records are raw JSON documents.
type ChangeFunc func(records []json.RawMessage)

// Client performs document operations against the remote store.
//
// Implementations must be safe for concurrent use: the sync manager's
// drain loop and the repositories' write-through path share one client.
type Client interface {
	// Upsert creates or replaces the document id of the given kind.
	Upsert(ctx context.Context, kind schema.Kind, id string, payload json.RawMessage) error

	// Delete removes the document. Deleting a missing document is not
	// an error (idempotent).
	Delete(ctx context.Context, kind schema.Kind, id string) error

	// Listen subscribes to collection changes for kind. onChange is
	// invoked with the full collection on every remote change. The
	// returned stop function cancels the subscription.
	Listen(ctx context.Context, kind schema.Kind, onChange ChangeFunc) (stop func(), err error)

	// Ping reports whether the store is reachable. Used by the
	// connectivity monitor as the online/offline signal.
	Ping(ctx context.Context) error
}
