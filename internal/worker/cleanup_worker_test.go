package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/reliability/retry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	calls    atomic.Int32
	failures int32
}

func (s *countingSweeper) SweepStaleHandshakes(context.Context) (int64, error) {
	n := s.calls.Add(1)
	if n <= s.failures {
		return 0, errors.New("connection reset")
	}
	return 2, nil
}

type resetCounter struct{ n atomic.Int32 }

func (r *resetCounter) Reset() { r.n.Add(1) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnceRetriesTransientFailures(t *testing.T) {
	sweeper := &countingSweeper{failures: 2}
	caps := &resetCounter{}
	w := NewCleanupWorker(sweeper, caps, quietLogger(), time.Minute)
	w.retry = &retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}

	w.RunOnce(context.Background())

	assert.Equal(t, int32(3), sweeper.calls.Load())
	assert.Equal(t, int32(1), caps.n.Load())
}

func TestRunOnceToleratesNilCapabilities(t *testing.T) {
	sweeper := &countingSweeper{}
	NewCleanupWorker(sweeper, nil, quietLogger(), time.Minute).RunOnce(context.Background())
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestStartStopsOnCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewCleanupWorker(sweeper, nil, quietLogger(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
