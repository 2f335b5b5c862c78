package observability

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// StatsSnapshot aggregates the relay counters for the health log and the
// /healthz endpoint.
type StatsSnapshot struct {
	ConnectionsOpened uint64 `json:"connections_opened"`
	ConnectionsClosed uint64 `json:"connections_closed"`
	ConnectionsLive   uint64 `json:"connections_live"`
	MessagesRelayed   uint64 `json:"messages_relayed"`
	FilesRelayed      uint64 `json:"files_relayed"`
	DroppedFrames     uint64 `json:"dropped_frames"`
	DroppedEvents     uint64 `json:"dropped_events"`
	Uptime            string `json:"uptime"`
}

// Stats tracks relay activity with atomic counters. Safe for concurrent use.
type Stats struct {
	connectionsOpened uint64
	connectionsClosed uint64
	messagesRelayed   uint64
	filesRelayed      uint64
	droppedFrames     uint64
	droppedEvents     uint64
	startedAt         time.Time
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) IncrConnectionsOpened() { atomic.AddUint64(&s.connectionsOpened, 1) }
func (s *Stats) IncrConnectionsClosed() { atomic.AddUint64(&s.connectionsClosed, 1) }
func (s *Stats) IncrMessagesRelayed()   { atomic.AddUint64(&s.messagesRelayed, 1) }
func (s *Stats) IncrFilesRelayed()      { atomic.AddUint64(&s.filesRelayed, 1) }

// IncrDroppedFrames counts outbound frames lost to a full sink buffer.
func (s *Stats) IncrDroppedFrames() { atomic.AddUint64(&s.droppedFrames, 1) }

// IncrDroppedEvents counts inbound events dropped as malformed or unroutable.
func (s *Stats) IncrDroppedEvents() { atomic.AddUint64(&s.droppedEvents, 1) }

func (s *Stats) Snapshot() StatsSnapshot {
	opened := atomic.LoadUint64(&s.connectionsOpened)
	closed := atomic.LoadUint64(&s.connectionsClosed)
	live := uint64(0)
	if opened > closed {
		live = opened - closed
	}
	return StatsSnapshot{
		ConnectionsOpened: opened,
		ConnectionsClosed: closed,
		ConnectionsLive:   live,
		MessagesRelayed:   atomic.LoadUint64(&s.messagesRelayed),
		FilesRelayed:      atomic.LoadUint64(&s.filesRelayed),
		DroppedFrames:     atomic.LoadUint64(&s.droppedFrames),
		DroppedEvents:     atomic.LoadUint64(&s.droppedEvents),
		Uptime:            time.Since(s.startedAt).Round(time.Second).String(),
	}
}

// Handler exposes the snapshot as JSON for the /healthz endpoint.
func Handler(stats *Stats) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Snapshot())
	})
}
