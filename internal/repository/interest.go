package repository

import (
	"context"
	"time"

	"companion/internal/domain"
)

// InterestRepository defines the persistence operations for match interests.
type InterestRepository interface {
	// Create stores interest. created is false when the same sender already
	// expressed interest in the same recipient for the same destination.
	Create(ctx context.Context, interest *domain.Interest) (created bool, err error)

	// GetByID returns ErrNotFound when there is no such interest.
	GetByID(ctx context.Context, id string) (*domain.Interest, error)

	// GetByPair returns the interest fromID sent toID for destination, or
	// ErrNotFound.
	GetByPair(ctx context.Context, fromID, toID, destination string) (*domain.Interest, error)

	// Resolve moves a pending interest to status. resolved is false when the
	// interest was no longer pending.
	Resolve(ctx context.Context, id string, status domain.InterestStatus, at time.Time) (resolved bool, err error)

	// MarkMutual accepts the interests between userA and userB for
	// destination, in both directions.
	MarkMutual(ctx context.Context, userA, userB, destination string, at time.Time) error

	// ListReceived returns interests addressed to userID with status,
	// newest first.
	ListReceived(ctx context.Context, userID string, status domain.InterestStatus) ([]*domain.Interest, error)

	// ListTargets returns the ids userID sent an interest to for destination.
	ListTargets(ctx context.Context, userID, destination string) ([]string, error)
}
