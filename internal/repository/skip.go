package repository

import (
	"context"

	"companion/internal/domain"
)

// SkipRepository defines the persistence operations for dismissed candidates.
type SkipRepository interface {
	// Create records a skip. Recording the same skip twice is not an error.
	Create(ctx context.Context, skip *domain.Skip) error

	// ListSkipped returns the ids userID has skipped for destination.
	ListSkipped(ctx context.Context, userID, destination string) ([]string, error)
}
