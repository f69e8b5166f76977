package service

import (
	"context"
	"errors"
	"fmt"

	"companion/internal/domain"
	"companion/internal/repository"
)

// SessionStore is the read side of trip intent storage. A nil intent with a
// nil error means the user has no active intent.
type SessionStore interface {
	GetTripIntent(ctx context.Context, userID string) (*domain.TripIntent, error)
	ListActiveTripIntents(ctx context.Context) ([]*domain.TripIntent, error)
}

// ProfileStore looks up static profiles. A nil profile with a nil error
// means the user has none.
type ProfileStore interface {
	GetStaticProfile(ctx context.Context, userID string) (*domain.StaticProfile, error)
}

// storeFailure normalizes an adapter error to ErrStoreUnavailable, keeping
// the cause in the chain. Malformed records and already-normalized errors
// pass through unchanged.
func storeFailure(err error) error {
	if err == nil ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, repository.ErrMalformedRecord) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
