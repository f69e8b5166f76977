package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"companion/internal/domain"
	"companion/internal/repository"
)

// InterestRepository is a PostgreSQL implementation of repository.InterestRepository.
type InterestRepository struct {
	q Querier
}

// NewInterestRepository creates a new PostgreSQL interest repository.
func NewInterestRepository(db *sql.DB) *InterestRepository {
	return &InterestRepository{q: db}
}

const interestColumns = `id, from_user_id, to_user_id, destination, status, created_at, updated_at`

func scanInterest(row rowScanner) (*domain.Interest, error) {
	var in domain.Interest
	var status string
	if err := row.Scan(&in.ID, &in.FromUserID, &in.ToUserID, &in.Destination, &status, &in.CreatedAt, &in.UpdatedAt); err != nil {
		return nil, err
	}
	in.Status = domain.InterestStatus(status)
	return &in, nil
}

// Create stores an interest, ignoring a repeat of the same sender, recipient
// and destination.
func (r *InterestRepository) Create(ctx context.Context, in *domain.Interest) (bool, error) {
	query := `
		INSERT INTO match_interests (id, from_user_id, to_user_id, destination, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (from_user_id, to_user_id, destination) DO NOTHING`

	res, err := r.q.ExecContext(ctx, query,
		in.ID, in.FromUserID, in.ToUserID, in.Destination, string(in.Status), in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID retrieves an interest by id.
func (r *InterestRepository) GetByID(ctx context.Context, id string) (*domain.Interest, error) {
	query := `SELECT ` + interestColumns + ` FROM match_interests WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByPair retrieves the interest fromID sent toID for destination.
func (r *InterestRepository) GetByPair(ctx context.Context, fromID, toID, destination string) (*domain.Interest, error) {
	query := `SELECT ` + interestColumns + ` FROM match_interests
		WHERE from_user_id = $1 AND to_user_id = $2 AND destination = $3`
	return r.getOne(ctx, query, fromID, toID, destination)
}

func (r *InterestRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Interest, error) {
	in, err := scanInterest(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return in, nil
}

// Resolve moves a pending interest to status.
func (r *InterestRepository) Resolve(ctx context.Context, id string, status domain.InterestStatus, at time.Time) (bool, error) {
	query := `
		UPDATE match_interests SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'`

	res, err := r.q.ExecContext(ctx, query, id, string(status), at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkMutual accepts both directions of a pair in one statement.
func (r *InterestRepository) MarkMutual(ctx context.Context, userA, userB, destination string, at time.Time) error {
	query := `
		UPDATE match_interests SET status = 'accepted', updated_at = $4
		WHERE destination = $3
		  AND ((from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1))`

	_, err := r.q.ExecContext(ctx, query, userA, userB, destination, at)
	return err
}

// ListReceived returns interests addressed to userID with status, newest first.
func (r *InterestRepository) ListReceived(ctx context.Context, userID string, status domain.InterestStatus) ([]*domain.Interest, error) {
	query := `SELECT ` + interestColumns + ` FROM match_interests
		WHERE to_user_id = $1 AND status = $2
		ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Interest
	for rows.Next() {
		in, err := scanInterest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListTargets returns the ids userID sent an interest to for destination.
func (r *InterestRepository) ListTargets(ctx context.Context, userID, destination string) ([]string, error) {
	query := `SELECT to_user_id FROM match_interests WHERE from_user_id = $1 AND destination = $2`
	return queryIDs(ctx, r.q, query, userID, destination)
}
