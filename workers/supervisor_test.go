package workers

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

// funcWorker wraps a function so tests can script worker behavior.
type funcWorker struct {
	run func(ctx context.Context) error
}

func (w *funcWorker) Run(ctx context.Context) error { return w.run(ctx) }

func TestSupervisor_Restarts_On_Panic(t *testing.T) {
	req := require.New(t)
	var calls atomic.Int64

	// Given a worker that panics on every run
	worker := &funcWorker{run: func(ctx context.Context) error {
		calls.Add(1)
		panic("boom")
	}}

	sup := NewSupervisor(slog.Default())
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go sup.Add(worker).Run(ctx)

	// Waiting for panics and restarts
	time.Sleep(900 * time.Millisecond)

	req.GreaterOrEqual(calls.Load(), int64(2))
}

func TestSupervisor_Stops_After_Worker_Success(t *testing.T) {
	req := require.New(t)

	// Given a worker terminating properly on first run
	worker := &funcWorker{run: func(ctx context.Context) error { return nil }}

	sup := NewSupervisor(slog.Default())
	done := make(chan struct{})

	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// Then the supervisor detected the success and stopped
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have stopped after worker success")
	}
}

func TestSupervisor_Stop_Cancels_Running_Workers(t *testing.T) {
	req := require.New(t)

	// Given a worker that only exits on cancellation
	worker := &funcWorker{run: func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}}

	sup := NewSupervisor(slog.Default())
	done := make(chan struct{})

	go func() {
		sup.Add(worker).Run(context.Background())
		close(done)
	}()

	// Let the worker start before stopping
	time.Sleep(50 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Supervisor should have drained after Stop")
	}
}

func TestSelfStats_Collects_For_Current_Process(t *testing.T) {
	req := require.New(t)

	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	rss, cpu, err := selfStats(p)
	req.NoError(err)
	req.Greater(rss, uint64(0))
	req.GreaterOrEqual(cpu, float64(0))
}
