// Package server provides the reference remote store: an HTTP document
// store scoped per authenticated user, with WebSocket change feeds.
//
// It exists so pocketbook is self-hostable and end-to-end testable.
// One document collection exists per (user, kind); writes broadcast
// the full collection to every watcher of that collection, which is
// the contract the client's Listen relies on.
//
// Routes:
//
//	GET    /health           reachability probe, no auth
//	GET    /v1/{kind}        full collection
//	PUT    /v1/{kind}/{id}   upsert document
//	DELETE /v1/{kind}/{id}   delete document (idempotent)
//	GET    /v1/{kind}/watch  WebSocket change feed
package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/kessler/pocketbook/internal/schema"
)

// collectionKey identifies one user's collection of one kind.
type collectionKey struct {
	user string
	kind schema.Kind
}

// Server is the in-memory reference document store.
type Server struct {
	secret string
	logger *log.Logger

	mu       sync.RWMutex
	docs     map[collectionKey]map[string]json.RawMessage
	watchers map[collectionKey]map[chan []json.RawMessage]bool
}

// New creates a Server verifying tokens with the given HS256 secret.
// If logger is nil, a default logger is used.
func New(secret string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		secret:   secret,
		logger:   logger,
		docs:     make(map[collectionKey]map[string]json.RawMessage),
		watchers: make(map[collectionKey]map[chan []json.RawMessage]bool),
	}
}

// Handler returns the HTTP handler with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.secret))
		r.Get("/v1/{kind}", s.handleList)
		r.Get("/v1/{kind}/watch", s.handleWatch)
		r.Put("/v1/{kind}/{id}", s.handleUpsert)
		r.Delete("/v1/{kind}/{id}", s.handleDelete)
	})

	return r
}

func kindParam(w http.ResponseWriter, r *http.Request) (schema.Kind, bool) {
	kind, err := schema.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return 0, false
	}
	return kind, true
}

// collection returns the sorted full collection for key. Caller may
// hold no lock; read lock is taken internally.
func (s *Server) collection(key collectionKey) []json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[key]))
	for id := range s.docs[key] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.docs[key][id])
	}
	return records
}

// notify pushes the current collection to every watcher of key. Slow
// watchers are skipped, not blocked on.
func (s *Server) notify(key collectionKey) {
	records := s.collection(key)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.watchers[key] {
		select {
		case ch <- records:
		default:
		}
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	key := collectionKey{user: UserID(r.Context()), kind: kind}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.collection(key))
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "body must be valid JSON", http.StatusBadRequest)
		return
	}

	key := collectionKey{user: UserID(r.Context()), kind: kind}

	s.mu.Lock()
	if s.docs[key] == nil {
		s.docs[key] = make(map[string]json.RawMessage)
	}
	s.docs[key][id] = json.RawMessage(body)
	s.mu.Unlock()

	s.notify(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	key := collectionKey{user: UserID(r.Context()), kind: kind}

	s.mu.Lock()
	delete(s.docs[key], id)
	s.mu.Unlock()

	// Deleting a missing document succeeds; the client treats delete
	// as idempotent.
	s.notify(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	key := collectionKey{user: UserID(r.Context()), kind: kind}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := make(chan []json.RawMessage, 8)
	s.mu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[chan []json.RawMessage]bool)
	}
	s.watchers[key][ch] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.watchers[key], ch)
		s.mu.Unlock()
	}()

	ctx := r.Context()

	// Initial frame so a new watcher starts from the current state.
	if err := s.writeFrame(ctx, conn, s.collection(key)); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case records := <-ch:
			if err := s.writeFrame(ctx, conn, records); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, records []json.RawMessage) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}
