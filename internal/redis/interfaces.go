package redis

import (
	"context"
	"time"

	"companion/internal/domain"
)

// SessionStoreInterface defines the interface for trip intent storage.
type SessionStoreInterface interface {
	PutTripIntent(ctx context.Context, intent *domain.TripIntent, ttl time.Duration) error
	GetTripIntent(ctx context.Context, userID string) (*domain.TripIntent, error)
	DeleteTripIntent(ctx context.Context, userID string) error
	ListActiveTripIntents(ctx context.Context) ([]*domain.TripIntent, error)
}

// ProfileCacheInterface defines the interface for the profile read-through cache.
type ProfileCacheInterface interface {
	GetProfilesBatch(ctx context.Context, userIDs []string) (map[string]*domain.StaticProfile, []string, error)
	SetProfilesBatch(ctx context.Context, profiles []*domain.StaticProfile) error
	SetProfile(ctx context.Context, profile *domain.StaticProfile) error
	InvalidateProfile(ctx context.Context, userID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ SessionStoreInterface = (*SessionStore)(nil)
	_ ProfileCacheInterface = (*ProfileCache)(nil)
)
