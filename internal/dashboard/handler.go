package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mkowalski/scrawl/internal/connectivity"
	"github.com/mkowalski/scrawl/internal/syncer"
)

// Counter reports the current pending-write count.
type Counter interface {
	PendingCount(ctx context.Context) (int, error)
}

// Handler bridges subsystem events to dashboard broadcasts.
type Handler struct {
	server  *Server
	counter Counter
	logger  *log.Logger
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, counter Counter, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server:  server,
		counter: counter,
		logger:  logger,
	}
}

// OnConnectivityChange broadcasts a connectivity observation. Shaped to be
// passed straight to Service.SubscribeConnectivity.
func (h *Handler) OnConnectivityChange(st connectivity.Status) {
	h.broadcast(MessageTypeConnectivity, ConnectivityData{
		Connected: st.Connected,
		Reachable: st.Reachable,
	})
}

// OnDrainReport broadcasts a drain summary followed by the fresh queue
// depth. Shaped to be used as syncer.Config.OnReport.
func (h *Handler) OnDrainReport(report syncer.Report) {
	h.broadcast(MessageTypeDrainReport, DrainReportData{
		Synced:   len(report.Synced),
		Retried:  len(report.Retried),
		Dropped:  len(report.Dropped),
		Duration: report.Finished.Sub(report.Started),
	})

	h.BroadcastQueueDepth(context.Background())
}

// BroadcastQueueDepth reads the current pending count and broadcasts it.
func (h *Handler) BroadcastQueueDepth(ctx context.Context) {
	count, err := h.counter.PendingCount(ctx)
	if err != nil {
		h.logger.Printf("Failed to read pending count: %v", err)
		return
	}
	h.broadcast(MessageTypeQueueUpdate, QueueUpdateData{Pending: count})
}

// broadcast marshals data and hands the message to the server.
func (h *Handler) broadcast(typ MessageType, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}

	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
