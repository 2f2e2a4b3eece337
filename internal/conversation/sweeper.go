package conversation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes conversations that have been idle too long.
type Sweeper interface {
	SweepIdle(ctx context.Context) (int64, error)
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func(ctx context.Context) (int64, error)

// SweepIdle implements Sweeper.
func (f SweeperFunc) SweepIdle(ctx context.Context) (int64, error) { return f(ctx) }

// StartSweeper runs a background goroutine that periodically sweeps idle
// conversations until ctx is canceled. A non-positive interval disables it.
func StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger, sweepers ...Sweeper) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		logger.Warn("Conversation sweeper disabled", "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		logger.Info("Conversation sweeper started", "interval", interval, "stores", len(sweepers))

		for {
			select {
			case <-ticker.C:
				sweep(ctx, logger, sweepers)
			case <-ctx.Done():
				logger.Info("Conversation sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, logger *slog.Logger, sweepers []Sweeper) {
	var total int64
	for _, s := range sweepers {
		n, err := s.SweepIdle(ctx)
		if err != nil {
			logger.Error("Conversation sweep failed", "error", err)
			continue
		}
		total += n
	}
	if total > 0 {
		logger.Info("Conversation sweep completed", "removed", total)
	}
}
