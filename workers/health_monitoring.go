package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"peerdrop/observability"
)

// HealthWorker periodically logs the relay counters together with the
// process's own CPU and memory footprint. Pure observability, it never
// touches relay state.
type HealthWorker struct {
	log      *slog.Logger
	stats    *observability.Stats
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, stats *observability.Stats, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, stats: stats, interval: interval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	w.log.Info("Starting relay health worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			snapshot := w.stats.Snapshot()
			w.log.Info("Relay health",
				"rss_mb", rss/1024/1024,
				"cpu_percent", cpu,
				"connections_live", snapshot.ConnectionsLive,
				"messages_relayed", snapshot.MessagesRelayed,
				"files_relayed", snapshot.FilesRelayed,
				"dropped_frames", snapshot.DroppedFrames,
				"dropped_events", snapshot.DroppedEvents,
			)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpu, nil
}
