package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"companion/internal/domain"
	"companion/internal/repository"
)

// ProfileRepository is a PostgreSQL implementation of repository.ProfileRepository.
type ProfileRepository struct {
	q Querier
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{q: db}
}

// NewProfileRepositoryWithTx creates a profile repository using a transaction.
func NewProfileRepositoryWithTx(tx *sql.Tx) *ProfileRepository {
	return &ProfileRepository{q: tx}
}

const profileColumns = `user_id, age, interests, travel_modes, COALESCE(profession, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.StaticProfile, error) {
	var p domain.StaticProfile
	var interests, modes pq.StringArray
	if err := row.Scan(&p.UserID, &p.Age, &interests, &modes, &p.Profession); err != nil {
		return nil, err
	}
	p.Interests = []string(interests)
	p.TravelModes = []string(modes)
	return &p, nil
}

// GetByUserID retrieves a profile by user ID.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM travel_profiles WHERE user_id = $1`

	p, err := scanProfile(r.q.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetByUserIDs retrieves every profile among userIDs in a single query.
// Ids without a profile are absent from the result.
func (r *ProfileRepository) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*domain.StaticProfile, error) {
	result := make(map[string]*domain.StaticProfile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + profileColumns + ` FROM travel_profiles WHERE user_id = ANY($1)`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result[p.UserID] = p
	}
	return result, rows.Err()
}

// Upsert creates or replaces a profile.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.StaticProfile) error {
	query := `
		INSERT INTO travel_profiles (user_id, age, interests, travel_modes, profession, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			age = EXCLUDED.age,
			interests = EXCLUDED.interests,
			travel_modes = EXCLUDED.travel_modes,
			profession = EXCLUDED.profession,
			updated_at = NOW()`

	_, err := r.q.ExecContext(ctx, query,
		p.UserID,
		p.Age,
		pq.Array(nonNil(p.Interests)),
		pq.Array(nonNil(p.TravelModes)),
		p.Profession,
	)
	return err
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
