// Package repo provides the entity repositories: the single entry
// point the rest of the application uses to read and write one entity
// kind, hiding whether a write went straight through to the remote
// store or was queued for later.
//
// Every mutation follows the dual-write pattern: the local cache
// snapshot is written synchronously (a failure there is returned to
// the caller and nothing is queued), then the remote side is handled
// asynchronously from the caller's point of view - written through
// when the sync manager's preconditions hold, enqueued otherwise. A
// failed write-through falls back to the queue, so the caller never
// observes a remote failure at call time; remote durability is
// observable only through the pending count and sync notifications.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kessler/pocketbook/internal/cache"
	"github.com/kessler/pocketbook/internal/queue"
	"github.com/kessler/pocketbook/internal/remote"
	"github.com/kessler/pocketbook/internal/schema"
	syncmgr "github.com/kessler/pocketbook/internal/sync"
)

// writeThroughTimeout bounds a single opportunistic remote write. A
// slow store degrades to the queued path instead of stalling callers.
const writeThroughTimeout = 15 * time.Second

// Repos bundles the three entity repositories over one shared
// dual-write core.
type Repos struct {
	Transactions *TransactionRepo
	Categories   *CategoryRepo
	Settings     *SettingsRepo
}

// New constructs the repositories. client may be nil (local-only
// mode); every mutation is then queued. If logger is nil, a default
// logger writing to stderr is used.
func New(store cache.Store, manager *syncmgr.Manager, client remote.Client, logger *log.Logger) *Repos {
	if logger == nil {
		logger = log.New(os.Stderr, "[repo] ", log.LstdFlags)
	}
	core := &core{
		store:   store,
		manager: manager,
		client:  client,
		logger:  logger,
	}
	return &Repos{
		Transactions: &TransactionRepo{core: core},
		Categories:   &CategoryRepo{core: core},
		Settings:     &SettingsRepo{core: core},
	}
}

// core implements the kind-independent half of the dual-write pattern
// over raw JSON documents. Typed repositories marshal/unmarshal on top.
type core struct {
	store   cache.Store
	manager *syncmgr.Manager
	client  remote.Client
	logger  *log.Logger
}

// record is the minimal shape needed to match documents by id inside
// a snapshot array.
type record struct {
	ID string `json:"id"`
}

// load reads the snapshot array for kind. A missing key is an empty
// collection.
func (c *core) load(kind schema.Kind) ([]json.RawMessage, error) {
	data, ok, err := c.store.Get(kind.SnapshotKey())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s snapshot: %w", kind, err)
	}
	if !ok {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s snapshot: %w", kind, err)
	}
	return records, nil
}

// save writes the snapshot array for kind back to the cache.
func (c *core) save(kind schema.Kind, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", kind, err)
	}
	if err := c.store.Set(kind.SnapshotKey(), data); err != nil {
		return fmt.Errorf("failed to write %s snapshot: %w", kind, err)
	}
	return nil
}

// upsertLocal replaces the document with the same id in the snapshot,
// or appends it. This is the synchronous half of the dual write; its
// error aborts the whole mutation.
func (c *core) upsertLocal(kind schema.Kind, id string, doc json.RawMessage) error {
	records, err := c.load(kind)
	if err != nil {
		return err
	}
	replaced := false
	for i, raw := range records {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		if r.ID == id {
			records[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, doc)
	}
	return c.save(kind, records)
}

// removeLocal drops the document with the given id from the snapshot.
// Removing a missing id is a no-op.
func (c *core) removeLocal(kind schema.Kind, id string) error {
	records, err := c.load(kind)
	if err != nil {
		return err
	}
	for i, raw := range records {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		if r.ID == id {
			records = append(records[:i], records[i+1:]...)
			break
		}
	}
	return c.save(kind, records)
}

// exists reports whether the snapshot holds a document with this id.
func (c *core) exists(kind schema.Kind, id string) (bool, error) {
	records, err := c.load(kind)
	if err != nil {
		return false, err
	}
	for _, raw := range records {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// flush is the asynchronous half of the dual write: write through to
// the remote store when sync preconditions hold, enqueue otherwise. A
// failed write-through also falls back to the queue. Nothing here is
// ever surfaced to the mutation's caller.
func (c *core) flush(kind schema.Kind, action schema.Action, id string, payload json.RawMessage) {
	if c.client != nil && c.manager.CanSync() {
		ctx, cancel := context.WithTimeout(context.Background(), writeThroughTimeout)
		defer cancel()

		var err error
		if action == schema.ActionDelete {
			err = c.client.Delete(ctx, kind, id)
		} else {
			err = c.client.Upsert(ctx, kind, id, payload)
		}
		if err == nil {
			return
		}
		c.logger.Printf("Write-through failed for %s %s %s, queueing: %v", action, kind, id, err)
	}

	op := queue.Op{
		Kind:     kind,
		Action:   action,
		EntityID: id,
		Payload:  payload,
	}
	if err := c.manager.Queue().Enqueue(op); err != nil {
		// Queue persistence shares the cache that just accepted the
		// snapshot write, so this indicates a failing environment.
		c.logger.Printf("ERROR: failed to enqueue %s %s %s: %v", action, kind, id, err)
	}
}

// subscribe feeds the remote change stream for kind back into the
// local snapshot, giving readers a live-updating view while connected.
func (c *core) subscribe(ctx context.Context, kind schema.Kind) (func(), error) {
	if c.client == nil {
		return nil, fmt.Errorf("no remote client configured")
	}
	return c.client.Listen(ctx, kind, func(records []json.RawMessage) {
		if err := c.save(kind, records); err != nil {
			c.logger.Printf("Warning: failed to apply remote %s snapshot: %v", kind, err)
		}
	})
}
