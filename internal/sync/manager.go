package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kessler/pocketbook/internal/cache"
	"github.com/kessler/pocketbook/internal/queue"
	"github.com/kessler/pocketbook/internal/remote"
	"github.com/kessler/pocketbook/internal/schema"
)

const (
	// MaxRetries is the number of failed apply attempts after which an
	// op is abandoned.
	MaxRetries = 5

	// MaxAge is how long an op may wait in the queue before it is
	// abandoned regardless of retry count.
	MaxAge = 7 * 24 * time.Hour

	// lastSyncKey is the cache key recording when the last drain cycle
	// completed (epoch milliseconds).
	lastSyncKey = "sync/last-sync"
)

// applyFunc maps one queued action onto the remote client call that
// performs it. The table below is the closed dispatch surface: every
// (kind, action) pair the queue can hold resolves here.
type applyFunc func(ctx context.Context, c remote.Client, op queue.Op) error

var applyFuncs = map[schema.Action]applyFunc{
	schema.ActionCreate: func(ctx context.Context, c remote.Client, op queue.Op) error {
		return c.Upsert(ctx, op.Kind, op.EntityID, op.Payload)
	},
	schema.ActionUpdate: func(ctx context.Context, c remote.Client, op queue.Op) error {
		return c.Upsert(ctx, op.Kind, op.EntityID, op.Payload)
	},
	schema.ActionDelete: func(ctx context.Context, c remote.Client, op queue.Op) error {
		return c.Delete(ctx, op.Kind, op.EntityID)
	},
}

// Status is the derived sync state, recomputed on demand and never
// stored as authoritative state.
type Status struct {
	Pending  int
	LastSync time.Time
	Online   bool
}

// Manager owns the mutation queue and drives drain cycles against the
// remote store. Construct one per process with New; there is no
// ambient singleton.
type Manager struct {
	queue  *queue.Queue
	client remote.Client
	store  cache.Store
	logger *log.Logger

	online   atomic.Bool
	draining atomic.Bool

	mu        sync.Mutex
	identity  *remote.Identity
	lastSync  time.Time
	observers []func(Notification)

	// now is swappable for age-bound tests.
	now func() time.Time
}

// New creates a Manager over an already-loaded queue.
//
// store is used only for drain bookkeeping (last sync timestamp);
// client may be nil when no server is configured, in which case every
// drain defers. If logger is nil, a default logger writing to stderr
// is used.
func New(q *queue.Queue, client remote.Client, store cache.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	m := &Manager{
		queue:  q,
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	m.loadLastSync()
	return m
}

// Queue exposes the manager's queue to the repositories, which enqueue
// mutations they could not write through.
func (m *Manager) Queue() *queue.Queue {
	return m.queue
}

// Client returns the remote store client, or nil when none is
// configured. The connectivity monitor uses it for reachability
// probes.
func (m *Manager) Client() remote.Client {
	return m.client
}

// SetIdentity installs the authenticated identity. A nil identity
// makes every subsequent drain defer on preconditions.
func (m *Manager) SetIdentity(id *remote.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = id
}

// SetOnline flips the connectivity flag. The connectivity monitor is
// the only expected caller.
func (m *Manager) SetOnline(online bool) {
	m.online.Store(online)
}

// Online reports the current connectivity trigger state.
func (m *Manager) Online() bool {
	return m.online.Load()
}

// Subscribe registers an observer for sync notifications. Observers
// are invoked synchronously from the drain cycle, so they must not
// block.
func (m *Manager) Subscribe(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) emit(n Notification) {
	m.mu.Lock()
	observers := make([]func(Notification), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(n)
	}
}

// Status returns the derived sync state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	lastSync := m.lastSync
	m.mu.Unlock()
	return Status{
		Pending:  m.queue.Len(),
		LastSync: lastSync,
		Online:   m.Online(),
	}
}

// CanSync reports whether a drain cycle would pass its preconditions.
func (m *Manager) CanSync() bool {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()
	return m.Online() && identity.Authenticated() && m.client != nil
}

// Drain runs one drain cycle: snapshot the queue, apply each op in
// enqueue order, remove successes, retry or abandon failures.
//
// At most one cycle runs at a time; a call that arrives while a cycle
// is in flight returns immediately without touching the queue. A
// failed precondition (offline, unauthenticated, no client) likewise
// returns with no side effects - that is a deferred state, not an
// error.
//
// The returned error reports only local persistence faults; remote
// apply failures are absorbed into retry state and notifications.
func (m *Manager) Drain(ctx context.Context) error {
	if !m.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer m.draining.Store(false)

	if !m.CanSync() {
		return nil
	}

	ops := m.queue.List()
	successCount := 0

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}

		apply := applyFuncs[op.Action]
		err := apply(ctx, m.client, op)
		if err == nil {
			if err := m.queue.Remove(op.ID); err != nil {
				return fmt.Errorf("failed to remove applied op: %w", err)
			}
			successCount++
			continue
		}

		m.logger.Printf("Apply failed for %s %s %s (attempt %d): %v",
			op.Action, op.Kind, op.EntityID, op.RetryCount+1, err)

		// Failures are per-operation; classify and move on.
		age := op.Age(m.now())
		newRetryCount := op.RetryCount + 1

		var reason AbandonReason
		switch {
		case age > MaxAge:
			reason = ReasonExpired
		case newRetryCount >= MaxRetries:
			reason = ReasonMaxRetries
		default:
			if err := m.queue.Update(op.ID, newRetryCount); err != nil {
				return fmt.Errorf("failed to update retry count: %w", err)
			}
			continue
		}

		if err := m.queue.Remove(op.ID); err != nil {
			return fmt.Errorf("failed to remove abandoned op: %w", err)
		}
		m.logger.Printf("Abandoned %s %s %s: %s", op.Action, op.Kind, op.EntityID, reason)
		m.emit(OpAbandoned{Kind: op.Kind, Action: op.Action, Reason: reason})
	}

	m.recordLastSync(m.now())

	if successCount > 0 {
		m.logger.Printf("Drain complete: %d applied, %d still pending",
			successCount, m.queue.Len())
		m.emit(SyncSucceeded{Count: successCount})
	}

	return nil
}

func (m *Manager) loadLastSync() {
	data, ok, err := m.store.Get(lastSyncKey)
	if err != nil || !ok {
		return
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return
	}
	m.lastSync = time.UnixMilli(ms)
}

func (m *Manager) recordLastSync(t time.Time) {
	m.mu.Lock()
	m.lastSync = t
	m.mu.Unlock()

	if err := m.store.Set(lastSyncKey, []byte(strconv.FormatInt(t.UnixMilli(), 10))); err != nil {
		m.logger.Printf("Warning: failed to persist last sync time: %v", err)
	}
}
