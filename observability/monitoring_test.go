package observability

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStats_Snapshot_Reflects_Counters(t *testing.T) {
	req := require.New(t)
	stats := NewStats()

	// When activity is recorded
	stats.IncrConnectionsOpened()
	stats.IncrConnectionsOpened()
	stats.IncrConnectionsClosed()
	stats.IncrMessagesRelayed()
	stats.IncrFilesRelayed()
	stats.IncrDroppedFrames()
	stats.IncrDroppedEvents()

	// Then the snapshot aggregates it
	snapshot := stats.Snapshot()
	req.Equal(uint64(2), snapshot.ConnectionsOpened)
	req.Equal(uint64(1), snapshot.ConnectionsClosed)
	req.Equal(uint64(1), snapshot.ConnectionsLive)
	req.Equal(uint64(1), snapshot.MessagesRelayed)
	req.Equal(uint64(1), snapshot.FilesRelayed)
	req.Equal(uint64(1), snapshot.DroppedFrames)
	req.Equal(uint64(1), snapshot.DroppedEvents)
}

func TestHandler_Serves_Snapshot_As_JSON(t *testing.T) {
	req := require.New(t)
	stats := NewStats()
	stats.IncrMessagesRelayed()

	recorder := httptest.NewRecorder()
	Handler(stats).ServeHTTP(recorder, httptest.NewRequest("GET", "/healthz", nil))

	req.Equal(200, recorder.Code)
	req.Equal("application/json", recorder.Header().Get("Content-Type"))

	var snapshot StatsSnapshot
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &snapshot))
	req.Equal(uint64(1), snapshot.MessagesRelayed)
}
