package service

import (
	"context"
	"errors"
	"fmt"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/repository"
	"companion/internal/validation"
)

// ProfileRefresher replaces cached copies of a profile after a write.
type ProfileRefresher interface {
	Refresh(ctx context.Context, p *domain.StaticProfile) error
}

// ProfileService manages static profiles.
type ProfileService struct {
	repo      repository.ProfileRepository
	refresher ProfileRefresher
}

// NewProfileService creates a new ProfileService. refresher may be nil.
func NewProfileService(repo repository.ProfileRepository, refresher ProfileRefresher) *ProfileService {
	return &ProfileService{repo: repo, refresher: refresher}
}

// Get returns the traveler's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	if !validation.ValidUserID(userID) {
		return nil, ErrInvalidUserID
	}
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileIncomplete
		}
		return nil, storeFailure(err)
	}
	return p, nil
}

// Upsert validates and stores a profile, then refreshes the cached copy.
func (s *ProfileService) Upsert(ctx context.Context, p *domain.StaticProfile) error {
	if !validation.ValidUserID(p.UserID) {
		return ErrInvalidUserID
	}
	if err := validation.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return storeFailure(err)
	}

	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx, p); err != nil {
			// The entry expires on its own; matches may see the old profile until then.
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", p.UserID).Msg("profile cache refresh failed")
		}
	}
	return nil
}
