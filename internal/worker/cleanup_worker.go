package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/reliability/retry"
)

// HandshakeSweeper clears abandoned OAuth handshake state.
type HandshakeSweeper interface {
	SweepStaleHandshakes(ctx context.Context) (int64, error)
}

// CapabilityCache forgets which optional tables were found missing.
type CapabilityCache interface {
	Reset()
}

// CleanupWorker periodically sweeps stale integration handshakes and
// re-probes optional tables so a late migration is picked up.
type CleanupWorker struct {
	handshakes HandshakeSweeper
	caps       CapabilityCache
	logger     *slog.Logger
	interval   time.Duration
	retry      *retry.Config
}

// NewCleanupWorker creates a new cleanup worker. caps may be nil.
func NewCleanupWorker(handshakes HandshakeSweeper, caps CapabilityCache, logger *slog.Logger, interval time.Duration) *CleanupWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CleanupWorker{
		handshakes: handshakes,
		caps:       caps,
		logger:     logger,
		interval:   interval,
		retry:      retry.DefaultConfig(),
	}
}

// Start runs the loop until ctx is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("cleanup worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass.
func (w *CleanupWorker) RunOnce(ctx context.Context) {
	n, err := retry.Do(ctx, w.retry, w.logger, "sweep handshakes", func(ctx context.Context) (int64, error) {
		return w.handshakes.SweepStaleHandshakes(ctx)
	})
	if err != nil {
		w.logger.Error("handshake sweep failed", slog.String("error", err.Error()))
	} else if n > 0 {
		w.logger.Info("cleared stale integration handshakes", slog.Int64("count", n))
	}

	if w.caps != nil {
		w.caps.Reset()
	}
}
