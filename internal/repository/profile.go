package repository

import (
	"context"

	"companion/internal/domain"
)

// ProfileRepository defines the persistence operations for static profiles.
type ProfileRepository interface {
	// GetByUserID retrieves a profile. Returns ErrNotFound when the user has none.
	GetByUserID(ctx context.Context, userID string) (*domain.StaticProfile, error)

	// GetByUserIDs retrieves the profiles that exist among userIDs, keyed by user id.
	GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*domain.StaticProfile, error)

	// Upsert creates or replaces a profile.
	Upsert(ctx context.Context, profile *domain.StaticProfile) error
}
