package gateway

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"peerdrop/contract"
	"peerdrop/domain"
	"peerdrop/domain/event"
	"peerdrop/observability"
)

// Hub is the table of live connections. It resolves connection ids into
// sinks for the router and carries server-wide broadcasts. Registration
// happens on websocket upgrade, removal on disconnect; the hub never looks
// at room membership.
type Hub struct {
	mu    sync.RWMutex
	log   *slog.Logger
	sinks map[domain.ConnID]contract.EventSink
	stats *observability.Stats
}

func NewHub(log *slog.Logger, stats *observability.Stats) *Hub {
	return &Hub{
		log:   log,
		sinks: make(map[domain.ConnID]contract.EventSink),
		stats: stats,
	}
}

func (h *Hub) Add(conn domain.ConnID, sink contract.EventSink) {
	h.mu.Lock()
	h.sinks[conn] = sink
	h.mu.Unlock()
	h.stats.IncrConnectionsOpened()
}

func (h *Hub) Remove(conn domain.ConnID) {
	h.mu.Lock()
	_, existed := h.sinks[conn]
	delete(h.sinks, conn)
	h.mu.Unlock()
	if existed {
		h.stats.IncrConnectionsClosed()
	}
}

func (h *Hub) SinkFor(conn domain.ConnID) (contract.EventSink, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sink, ok := h.sinks[conn]
	return sink, ok
}

// Broadcast pushes a frame to every live connection, bound or not.
func (h *Hub) Broadcast(e event.Envelope) {
	h.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(h.sinks))
	for _, sink := range h.sinks {
		sinks = append(sinks, sink)
	}
	h.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Consume(e); err != nil {
			h.log.Debug("Broadcast frame dropped by sink", "event", e.Event, "error", err)
		}
	}
}

// PresenceChanged implements contract.PresenceNotifier: every registry
// change turns into an online-users broadcast to all connections.
func (h *Hub) PresenceChanged(users []domain.Username) {
	names := lo.Map(users, func(u domain.Username, _ int) string { return string(u) })
	env, err := event.NewEnvelope(event.OnlineUsers, names)
	if err != nil {
		h.log.Error("Failed to encode presence snapshot", "error", err)
		return
	}
	h.Broadcast(env)
}
