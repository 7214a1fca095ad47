package dashboard

import (
	"encoding/json"
	"log"
	"time"

	syncmgr "github.com/kessler/pocketbook/internal/sync"
)

// Handler bridges sync manager notifications to dashboard broadcasts.
// Register it with Manager.Subscribe.
type Handler struct {
	server  *Server
	manager *syncmgr.Manager
	logger  *log.Logger
}

// NewHandler creates a notification handler connected to a dashboard
// server.
func NewHandler(server *Server, manager *syncmgr.Manager, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		server:  server,
		manager: manager,
		logger:  logger,
	}
}

// OnNotification formats a sync notification and broadcasts it,
// followed by the refreshed status.
func (h *Handler) OnNotification(n syncmgr.Notification) {
	switch ev := n.(type) {
	case syncmgr.SyncSucceeded:
		h.broadcast(MessageTypeSyncComplete, SyncCompleteData{
			Applied: ev.Count,
			Pending: h.manager.Status().Pending,
		})
	case syncmgr.OpAbandoned:
		h.logger.Printf("Abandoned: %s", ev.Message())
		h.broadcast(MessageTypeOpAbandoned, OpAbandonedData{
			Kind:   ev.Kind.String(),
			Action: ev.Action.String(),
			Reason: string(ev.Reason),
		})
	default:
		h.logger.Printf("Unknown notification type: %T", n)
		return
	}

	h.BroadcastStatus()
}

// BroadcastStatus pushes the current derived sync status to all
// clients.
func (h *Handler) BroadcastStatus() {
	status := h.manager.Status()
	data := StatusData{
		Pending: status.Pending,
		Online:  status.Online,
	}
	if !status.LastSync.IsZero() {
		data.LastSync = status.LastSync.Format(time.RFC3339)
	}
	h.broadcast(MessageTypeStatus, data)
}

func (h *Handler) broadcast(typ MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      raw,
	})
}
