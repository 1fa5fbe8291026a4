package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// attemptRow maps the connection_attempts table.
type attemptRow struct {
	ID           string    `db:"id"`
	Provider     string    `db:"provider"`
	Outcome      string    `db:"outcome"`
	Category     string    `db:"category"`
	Message      string    `db:"message"`
	StakeAddress string    `db:"stake_address"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
}

func (r attemptRow) toDomain() *domain.ConnectionAttempt {
	return &domain.ConnectionAttempt{
		ID:           r.ID,
		Provider:     r.Provider,
		Outcome:      domain.AttemptOutcome(r.Outcome),
		Category:     domain.ErrorCategory(r.Category),
		Message:      r.Message,
		StakeAddress: r.StakeAddress,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
}

func rowFromDomain(a *domain.ConnectionAttempt) attemptRow {
	return attemptRow{
		ID:           a.ID,
		Provider:     a.Provider,
		Outcome:      string(a.Outcome),
		Category:     string(a.Category),
		Message:      a.Message,
		StakeAddress: a.StakeAddress,
		StartedAt:    a.StartedAt,
		FinishedAt:   a.FinishedAt,
	}
}

const (
	insertAttemptSQL = `
INSERT INTO connection_attempts
    (id, provider, outcome, category, message, stake_address, started_at, finished_at)
VALUES
    (:id, :provider, :outcome, :category, :message, :stake_address, :started_at, :finished_at)
ON CONFLICT (id) DO NOTHING`

	listRecentSQL = `
SELECT id, provider, outcome, category, message, stake_address, started_at, finished_at
FROM connection_attempts
ORDER BY finished_at DESC
LIMIT $1`

	countByOutcomeSQL = `
SELECT COUNT(*) FROM connection_attempts WHERE provider = $1 AND outcome = $2`

	deleteOlderThanSQL = `
DELETE FROM connection_attempts WHERE finished_at < $1`
)

// AttemptRepo implements storage.AttemptRepository using PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL attempt repository.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Save records a finished negotiation.
func (r *AttemptRepo) Save(ctx context.Context, attempt *domain.ConnectionAttempt) error {
	if _, err := r.db.NamedExecContext(ctx, insertAttemptSQL, rowFromDomain(attempt)); err != nil {
		return fmt.Errorf("failed to save connection attempt: %w", err)
	}
	return nil
}

// ListRecent returns the newest attempts first.
func (r *AttemptRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ConnectionAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []attemptRow
	if err := r.db.SelectContext(ctx, &rows, listRecentSQL, limit); err != nil {
		return nil, fmt.Errorf("failed to list connection attempts: %w", err)
	}

	attempts := make([]*domain.ConnectionAttempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.toDomain())
	}
	return attempts, nil
}

// CountByOutcome counts attempts for a provider with the given outcome.
func (r *AttemptRepo) CountByOutcome(
	ctx context.Context,
	provider string,
	outcome domain.AttemptOutcome,
) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, countByOutcomeSQL, provider, string(outcome)); err != nil {
		return 0, fmt.Errorf("failed to count connection attempts: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes attempts finished before threshold.
func (r *AttemptRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteOlderThanSQL, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to prune connection attempts: %w", err)
	}
	return res.RowsAffected()
}
