package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// DefaultCapacity bounds how many attempts the memory store keeps.
const DefaultCapacity = 1000

type MemoryStorage struct {
	attempts []*domain.ConnectionAttempt
	capacity int
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{capacity: DefaultCapacity}
}

// -----------------------------------------------------------------------------
// Attempt Repository
// -----------------------------------------------------------------------------

type AttemptRepo struct {
	store *MemoryStorage
}

func NewAttemptRepo(store *MemoryStorage) *AttemptRepo {
	return &AttemptRepo{store: store}
}

func (r *AttemptRepo) Save(ctx context.Context, attempt *domain.ConnectionAttempt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a := *attempt
	if len(r.store.attempts) >= r.store.capacity {
		copy(r.store.attempts, r.store.attempts[1:])
		r.store.attempts[len(r.store.attempts)-1] = &a
		return nil
	}
	r.store.attempts = append(r.store.attempts, &a)
	return nil
}

func (r *AttemptRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ConnectionAttempt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	n := len(r.store.attempts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*domain.ConnectionAttempt, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		a := *r.store.attempts[i]
		out = append(out, &a)
	}
	return out, nil
}

func (r *AttemptRepo) CountByOutcome(
	ctx context.Context,
	provider string,
	outcome domain.AttemptOutcome,
) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, a := range r.store.attempts {
		if a.Provider == provider && a.Outcome == outcome {
			count++
		}
	}
	return count, nil
}

func (r *AttemptRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.attempts[:0]
	var deleted int64
	for _, a := range r.store.attempts {
		if a.FinishedAt.Before(threshold) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	for i := len(kept); i < len(r.store.attempts); i++ {
		r.store.attempts[i] = nil
	}
	r.store.attempts = kept
	return deleted, nil
}
