package revocation

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper evicts expired entries every interval until ctx is done.
// Sweep errors are logged and retried on the next tick.
func RunSweeper(ctx context.Context, s Sweeper, interval time.Duration, log *slog.Logger) {
	if s == nil || interval <= 0 {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.Sweep(ctx, now)
			if err != nil {
				log.Warn("revocation sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Debug("revocation sweep", "evicted", n)
			}
		}
	}
}
