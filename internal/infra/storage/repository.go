package storage

import (
	"context"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// AttemptRepository stores the negotiation audit log. It is write-mostly
// history; sessions are never restored from it.
type AttemptRepository interface {
	// Save records a finished negotiation
	Save(ctx context.Context, attempt *domain.ConnectionAttempt) error

	// ListRecent returns the newest attempts first
	ListRecent(ctx context.Context, limit int) ([]*domain.ConnectionAttempt, error)

	// CountByOutcome returns how many attempts a provider finished with outcome
	CountByOutcome(ctx context.Context, provider string, outcome domain.AttemptOutcome) (int, error)

	// DeleteOlderThan removes attempts finished before the threshold
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}
