package postgres

import (
	"context"
	"database/sql"

	"companion/internal/domain"
)

// SkipRepository is a PostgreSQL implementation of repository.SkipRepository.
type SkipRepository struct {
	q Querier
}

// NewSkipRepository creates a new PostgreSQL skip repository.
func NewSkipRepository(db *sql.DB) *SkipRepository {
	return &SkipRepository{q: db}
}

// Create records a skip, ignoring duplicates.
func (r *SkipRepository) Create(ctx context.Context, skip *domain.Skip) error {
	query := `
		INSERT INTO match_skips (user_id, skipped_user_id, destination, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, skipped_user_id, destination) DO NOTHING`
	_, err := r.q.ExecContext(ctx, query, skip.UserID, skip.SkippedUserID, skip.Destination, skip.CreatedAt)
	return err
}

// ListSkipped returns the ids userID skipped for destination.
func (r *SkipRepository) ListSkipped(ctx context.Context, userID, destination string) ([]string, error) {
	query := `SELECT skipped_user_id FROM match_skips WHERE user_id = $1 AND destination = $2`
	return queryIDs(ctx, r.q, query, userID, destination)
}
