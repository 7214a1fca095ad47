package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/kessler/pocketbook/internal/cache"
	"github.com/kessler/pocketbook/internal/queue"
	"github.com/kessler/pocketbook/internal/remote"
	"github.com/kessler/pocketbook/internal/schema"
)

// fakeClient records every call and can be told to fail specific
// entity ids.
type fakeClient struct {
	mu      gosync.Mutex
	calls   []string
	failIDs map[string]error
	delay   time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{failIDs: map[string]error{}}
}

func (c *fakeClient) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeClient) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *fakeClient) failWith(id string, err error) {
	c.mu.Lock()
	c.failIDs[id] = err
	c.mu.Unlock()
}

func (c *fakeClient) errFor(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failIDs[id]
}

func (c *fakeClient) Upsert(ctx context.Context, kind schema.Kind, id string, payload json.RawMessage) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.record(fmt.Sprintf("upsert %s %s", kind, id))
	return c.errFor(id)
}

func (c *fakeClient) Delete(ctx context.Context, kind schema.Kind, id string) error {
	c.record(fmt.Sprintf("delete %s %s", kind, id))
	return c.errFor(id)
}

func (c *fakeClient) Listen(ctx context.Context, kind schema.Kind, onChange remote.ChangeFunc) (func(), error) {
	return func() {}, nil
}

func (c *fakeClient) Ping(ctx context.Context) error {
	return nil
}

// setupManager wires a manager over a temp cache, a fake client, and a
// valid identity, flagged online so drains pass preconditions.
func setupManager(t *testing.T) (*Manager, *fakeClient) {
	t.Helper()

	store, err := cache.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	q, err := queue.Load(store)
	if err != nil {
		t.Fatalf("failed to load queue: %v", err)
	}

	client := newFakeClient()
	m := New(q, client, store, log.New(io.Discard, "", 0))
	m.SetIdentity(&remote.Identity{
		Subject: "tester",
		Expiry:  time.Now().Add(time.Hour),
	})
	m.SetOnline(true)
	return m, client
}

func enqueue(t *testing.T, m *Manager, op queue.Op) {
	t.Helper()
	if err := m.Queue().Enqueue(op); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
}

func TestDrainAppliesQueuedOps(t *testing.T) {
	m, client := setupManager(t)

	var notes []Notification
	m.Subscribe(func(n Notification) { notes = append(notes, n) })

	enqueue(t, m, queue.Op{
		Kind:     schema.KindTransaction,
		Action:   schema.ActionCreate,
		EntityID: "t1",
		Payload:  json.RawMessage(`{"id":"t1"}`),
	})

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	calls := client.callLog()
	if len(calls) != 1 || calls[0] != "upsert transaction t1" {
		t.Errorf("unexpected call log: %v", calls)
	}
	if m.Queue().Len() != 0 {
		t.Errorf("expected empty queue, got %d ops", m.Queue().Len())
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	succ, ok := notes[0].(SyncSucceeded)
	if !ok {
		t.Fatalf("expected SyncSucceeded, got %T", notes[0])
	}
	if succ.Count != 1 {
		t.Errorf("expected count 1, got %d", succ.Count)
	}
}

func TestDrainAppliesInEnqueueOrder(t *testing.T) {
	m, client := setupManager(t)

	// Two updates to the same category: the later one must reach the
	// store last so it wins.
	base := time.Now().UnixMilli()
	enqueue(t, m, queue.Op{
		Kind:       schema.KindCategory,
		Action:     schema.ActionUpdate,
		EntityID:   "c1",
		Payload:    json.RawMessage(`{"id":"c1","name":"Food"}`),
		EnqueuedAt: base,
	})
	enqueue(t, m, queue.Op{
		Kind:       schema.KindCategory,
		Action:     schema.ActionUpdate,
		EntityID:   "c1",
		Payload:    json.RawMessage(`{"id":"c1","name":"Groceries"}`),
		EnqueuedAt: base + 1,
	})

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	calls := client.callLog()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d: %v", len(calls), calls)
	}
	for i, want := range []string{"upsert category c1", "upsert category c1"} {
		if calls[i] != want {
			t.Errorf("call %d: expected %q, got %q", i, want, calls[i])
		}
	}
	if m.Queue().Len() != 0 {
		t.Errorf("expected empty queue, got %d ops", m.Queue().Len())
	}
}

func TestDrainDefersWhenOffline(t *testing.T) {
	m, client := setupManager(t)
	m.SetOnline(false)

	enqueue(t, m, queue.Op{EntityID: "t1", Action: schema.ActionCreate})

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(client.callLog()) != 0 {
		t.Errorf("expected no remote calls while offline, got %v", client.callLog())
	}
	if m.Queue().Len() != 1 {
		t.Errorf("queue changed while deferred: %d ops", m.Queue().Len())
	}
}

func TestDrainDefersWithoutIdentity(t *testing.T) {
	m, client := setupManager(t)
	m.SetIdentity(nil)

	enqueue(t, m, queue.Op{EntityID: "t1", Action: schema.ActionCreate})

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(client.callLog()) != 0 {
		t.Errorf("expected no remote calls without identity, got %v", client.callLog())
	}
	if m.Queue().Len() != 1 {
		t.Errorf("queue changed while deferred: %d ops", m.Queue().Len())
	}
}

func TestDrainFailureIsolatedPerOp(t *testing.T) {
	m, client := setupManager(t)
	client.failWith("bad", errors.New("server rejected it"))

	base := time.Now().UnixMilli()
	enqueue(t, m, queue.Op{
		Kind: schema.KindTransaction, Action: schema.ActionCreate,
		EntityID: "bad", EnqueuedAt: base,
	})
	enqueue(t, m, queue.Op{
		Kind: schema.KindTransaction, Action: schema.ActionCreate,
		EntityID: "good", EnqueuedAt: base + 1,
	})

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	ops := m.Queue().List()
	if len(ops) != 1 {
		t.Fatalf("expected 1 remaining op, got %d", len(ops))
	}
	if ops[0].EntityID != "bad" {
		t.Errorf("wrong op survived: %q", ops[0].EntityID)
	}
	if ops[0].RetryCount != 1 {
		t.Errorf("expected retry count 1, got %d", ops[0].RetryCount)
	}
}

func TestDrainAbandonsAfterMaxRetries(t *testing.T) {
	m, client := setupManager(t)
	client.failWith("doomed", errors.New("always fails"))

	enqueue(t, m, queue.Op{
		Kind: schema.KindTransaction, Action: schema.ActionCreate,
		EntityID: "doomed",
	})

	var abandoned []OpAbandoned
	m.Subscribe(func(n Notification) {
		if ab, ok := n.(OpAbandoned); ok {
			abandoned = append(abandoned, ab)
		}
	})

	// Each drain is one failed attempt; the op survives the first
	// MaxRetries-1 and is dropped on attempt MaxRetries.
	for i := 0; i < MaxRetries-1; i++ {
		if err := m.Drain(context.Background()); err != nil {
			t.Fatalf("Drain %d failed: %v", i+1, err)
		}
		if m.Queue().Len() != 1 {
			t.Fatalf("op dropped early after %d attempts", i+1)
		}
	}

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("final Drain failed: %v", err)
	}
	if m.Queue().Len() != 0 {
		t.Fatalf("expected op abandoned, %d ops remain", m.Queue().Len())
	}
	if len(abandoned) != 1 {
		t.Fatalf("expected 1 abandonment notification, got %d", len(abandoned))
	}
	if abandoned[0].Reason != ReasonMaxRetries {
		t.Errorf("expected reason %q, got %q", ReasonMaxRetries, abandoned[0].Reason)
	}
	if got := len(client.callLog()); got != MaxRetries {
		t.Errorf("expected %d apply attempts, got %d", MaxRetries, got)
	}
}

func TestDrainAbandonsExpiredOps(t *testing.T) {
	m, client := setupManager(t)
	client.failWith("stale", errors.New("still failing"))

	enqueue(t, m, queue.Op{
		Kind: schema.KindCategory, Action: schema.ActionDelete,
		EntityID: "stale",
	})

	var abandoned []OpAbandoned
	m.Subscribe(func(n Notification) {
		if ab, ok := n.(OpAbandoned); ok {
			abandoned = append(abandoned, ab)
		}
	})

	// Skip the clock past the age limit; a single failure is enough to
	// expire the op even though retries remain.
	m.now = func() time.Time { return time.Now().Add(MaxAge + time.Hour) }

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if m.Queue().Len() != 0 {
		t.Fatalf("expected expired op removed, %d remain", m.Queue().Len())
	}
	if len(abandoned) != 1 {
		t.Fatalf("expected 1 abandonment notification, got %d", len(abandoned))
	}
	if abandoned[0].Reason != ReasonExpired {
		t.Errorf("expected reason %q, got %q", ReasonExpired, abandoned[0].Reason)
	}
}

func TestDrainNoNotificationWhenNothingApplied(t *testing.T) {
	m, client := setupManager(t)
	client.failWith("bad", errors.New("nope"))

	enqueue(t, m, queue.Op{
		Kind: schema.KindTransaction, Action: schema.ActionCreate,
		EntityID: "bad",
	})

	var notes []Notification
	m.Subscribe(func(n Notification) { notes = append(notes, n) })

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("expected no notifications, got %d", len(notes))
	}
}

func TestConcurrentDrainsApplyEachOpOnce(t *testing.T) {
	m, client := setupManager(t)
	client.delay = 20 * time.Millisecond

	for i := 0; i < 3; i++ {
		enqueue(t, m, queue.Op{
			Kind: schema.KindTransaction, Action: schema.ActionCreate,
			EntityID: fmt.Sprintf("t%d", i),
		})
	}

	var wg gosync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Drain(context.Background()); err != nil {
				t.Errorf("Drain failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// Overlapping calls return immediately; exactly one cycle runs, so
	// each op is applied exactly once.
	if got := len(client.callLog()); got != 3 {
		t.Errorf("expected 3 apply calls, got %d: %v", got, client.callLog())
	}
	if m.Queue().Len() != 0 {
		t.Errorf("expected empty queue, got %d ops", m.Queue().Len())
	}
}

// enqueueDuringApply injects a new op into the queue from inside an
// apply call, simulating a UI write landing mid-drain.
type enqueueDuringApply struct {
	*fakeClient
	q    *queue.Queue
	once gosync.Once
}

func (c *enqueueDuringApply) Upsert(ctx context.Context, kind schema.Kind, id string, payload json.RawMessage) error {
	c.once.Do(func() {
		_ = c.q.Enqueue(queue.Op{
			Kind: schema.KindTransaction, Action: schema.ActionCreate,
			EntityID: "late",
		})
	})
	return c.fakeClient.Upsert(ctx, kind, id, payload)
}

func TestOpsEnqueuedMidDrainWaitForNextCycle(t *testing.T) {
	m, inner := setupManager(t)
	client := &enqueueDuringApply{fakeClient: inner, q: m.Queue()}
	m.client = client

	enqueue(t, m, queue.Op{
		Kind: schema.KindTransaction, Action: schema.ActionCreate,
		EntityID: "early",
	})

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	// The drain applied only its snapshot; "late" stays queued.
	ops := m.Queue().List()
	if len(ops) != 1 || ops[0].EntityID != "late" {
		t.Fatalf("expected only the mid-drain op to remain, got %v", ops)
	}
	if got := len(client.callLog()); got != 1 {
		t.Errorf("expected 1 apply call in the first cycle, got %d", got)
	}

	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("second Drain failed: %v", err)
	}
	if m.Queue().Len() != 0 {
		t.Errorf("second cycle did not apply the late op: %d remain", m.Queue().Len())
	}
}

func TestDrainRecordsLastSync(t *testing.T) {
	m, _ := setupManager(t)

	if !m.Status().LastSync.IsZero() {
		t.Fatal("expected zero last sync before first drain")
	}
	if err := m.Drain(context.Background()); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if m.Status().LastSync.IsZero() {
		t.Error("expected last sync recorded after drain")
	}
}

func TestStatus(t *testing.T) {
	m, _ := setupManager(t)
	enqueue(t, m, queue.Op{EntityID: "t1", Action: schema.ActionCreate})

	st := m.Status()
	if st.Pending != 1 {
		t.Errorf("expected 1 pending, got %d", st.Pending)
	}
	if !st.Online {
		t.Error("expected online status")
	}
}

func TestCanSyncRequiresAllPreconditions(t *testing.T) {
	m, _ := setupManager(t)
	if !m.CanSync() {
		t.Fatal("expected CanSync with identity, online, and client")
	}

	m.SetOnline(false)
	if m.CanSync() {
		t.Error("CanSync true while offline")
	}
	m.SetOnline(true)

	m.SetIdentity(&remote.Identity{Subject: "tester", Expiry: time.Now().Add(-time.Hour)})
	if m.CanSync() {
		t.Error("CanSync true with expired identity")
	}
}
