package service

import (
	"context"
	"errors"
	"time"

	"companion/internal/domain"
	"companion/internal/repository"
	"companion/internal/validation"
)

// SkipService records candidates a traveler does not want to see again.
type SkipService struct {
	sessions SessionStore
	repo     repository.SkipRepository
	now      func() time.Time
}

// NewSkipService creates a new SkipService.
func NewSkipService(sessions SessionStore, repo repository.SkipRepository) *SkipService {
	return &SkipService{sessions: sessions, repo: repo, now: time.Now}
}

// Skip hides skippedUserID from userID's matches for userID's current destination.
func (s *SkipService) Skip(ctx context.Context, userID, skippedUserID string) (*domain.Skip, error) {
	if !validation.ValidUserID(userID) || !validation.ValidUserID(skippedUserID) {
		return nil, ErrInvalidUserID
	}
	if userID == skippedUserID {
		return nil, ErrInvalidSkip
	}

	intent, err := s.sessions.GetTripIntent(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrMalformedRecord) {
		return nil, storeFailure(err)
	}
	if intent == nil {
		return nil, ErrNoActiveSession
	}

	skip := &domain.Skip{
		UserID:        userID,
		SkippedUserID: skippedUserID,
		Destination:   intent.Destination,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, skip); err != nil {
		return nil, storeFailure(err)
	}
	return skip, nil
}
