package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/walletlink/internal/infra/storage"
)

// Pruner deletes audit records older than the retention period.
type Pruner struct {
	retention time.Duration
	repo      storage.AttemptRepository
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.AttemptRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		now:       time.Now,
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune removes expired attempts once.
func (p *Pruner) Prune(ctx context.Context) {
	threshold := p.now().Add(-p.retention)

	deleted, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("Failed to prune connection attempts", "error", err)
		return
	}
	if deleted > 0 {
		slog.Debug("Pruned connection attempts", "count", deleted, "before", threshold)
	}
}
