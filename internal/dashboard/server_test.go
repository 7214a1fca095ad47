package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/kessler/pocketbook/internal/cache"
	"github.com/kessler/pocketbook/internal/queue"
	"github.com/kessler/pocketbook/internal/schema"
	syncmgr "github.com/kessler/pocketbook/internal/sync"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dialDashboard(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("failed to dial dashboard: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read dashboard message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode dashboard message: %v", err)
	}
	return msg
}

func TestHealthEndpoint(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	s := startServer(t)
	conn := dialDashboard(t, s)

	// Connection registration races the broadcast; give the server a
	// moment to add the client.
	time.Sleep(100 * time.Millisecond)

	data, _ := json.Marshal(SyncCompleteData{Applied: 3, Pending: 1})
	s.Broadcast(Message{Type: MessageTypeSyncComplete, Data: data})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Fatalf("expected sync_complete, got %s", msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be filled in")
	}

	var payload SyncCompleteData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Applied != 3 || payload.Pending != 1 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestHandlerBridgesNotifications(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	q, err := queue.Load(store)
	if err != nil {
		t.Fatalf("failed to load queue: %v", err)
	}
	m := syncmgr.New(q, nil, store, log.New(io.Discard, "", 0))

	s := startServer(t)
	conn := dialDashboard(t, s)
	time.Sleep(100 * time.Millisecond)

	h := NewHandler(s, m, log.New(io.Discard, "", 0))

	h.OnNotification(syncmgr.SyncSucceeded{Count: 2})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Fatalf("expected sync_complete first, got %s", msg.Type)
	}
	msg = readMessage(t, conn)
	if msg.Type != MessageTypeStatus {
		t.Fatalf("expected status after sync_complete, got %s", msg.Type)
	}

	h.OnNotification(syncmgr.OpAbandoned{
		Kind:   schema.KindTransaction,
		Action: schema.ActionCreate,
		Reason: syncmgr.ReasonMaxRetries,
	})

	msg = readMessage(t, conn)
	if msg.Type != MessageTypeOpAbandoned {
		t.Fatalf("expected op_abandoned, got %s", msg.Type)
	}
	var payload OpAbandonedData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Kind != "transaction" || payload.Action != "create" || payload.Reason != "max_retries" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}
