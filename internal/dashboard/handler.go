package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/prodhub/prodhub/internal/store"
	"github.com/prodhub/prodhub/internal/sync"
)

// Handler translates sync engine events and connectivity flips into
// dashboard broadcasts. Attach its methods via sync.Events and the
// daemon's connectivity observer.
type Handler struct {
	server *Server
	store  *store.Store
	logger *log.Logger
}

// NewHandler creates a Handler feeding the given server. The store is used
// to report queue depth after each cycle; it may be nil.
func NewHandler(server *Server, st *store.Store, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		server: server,
		store:  st,
		logger: logger,
	}
}

// Events returns sync engine hooks wired to this handler.
func (h *Handler) Events() sync.Events {
	return sync.Events{
		CycleFinished: h.OnCycleFinished,
		EntryDropped:  h.OnEntryDropped,
	}
}

// OnCycleFinished broadcasts the cycle summary and current queue depth.
func (h *Handler) OnCycleFinished(stats sync.CycleStats) {
	h.send(MessageTypeCycle, CycleData{
		Drained:    stats.Drained,
		Failed:     stats.Failed,
		Dropped:    stats.Dropped,
		Merged:     stats.Merged,
		DurationMS: stats.Duration.Milliseconds(),
	})

	if h.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := h.store.Stats(ctx)
	if err != nil {
		h.logger.Printf("Failed to read queue depth: %v", err)
		return
	}
	h.send(MessageTypeQueue, QueueData{Depth: s.QueueDepth})
}

// OnEntryDropped broadcasts an abandoned mutation.
func (h *Handler) OnEntryDropped(entry *store.QueueEntry, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	h.send(MessageTypeDropped, DroppedData{
		EntityType: string(entry.EntityType),
		Action:     string(entry.Action),
		ItemID:     entry.ItemID,
		Retries:    entry.Retries,
		Reason:     reason,
	})
}

// OnConnectivityChanged broadcasts an online/offline flip.
func (h *Handler) OnConnectivityChanged(online bool) {
	h.send(MessageTypeConnectivity, ConnectivityData{Online: online})
}

func (h *Handler) send(typ MessageType, data any) {
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
