package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/redis"
	"companion/internal/repository"
	"companion/internal/validation"
)

// TripIntentService manages travelers' live trip intents.
type TripIntentService struct {
	sessions redis.SessionStoreInterface
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

// NewTripIntentService creates a new TripIntentService. notifier may be nil.
func NewTripIntentService(sessions redis.SessionStoreInterface, notifier Notifier, ttl time.Duration) *TripIntentService {
	if ttl <= 0 {
		ttl = redis.DefaultSessionTTL
	}
	return &TripIntentService{sessions: sessions, notifier: notifier, ttl: ttl, now: time.Now}
}

// DeclareTripRequest contains the parameters for declaring a trip.
type DeclareTripRequest struct {
	UserID      string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Budget      float64
}

// Declare stores the traveler's trip intent, replacing any previous one.
func (s *TripIntentService) Declare(ctx context.Context, req DeclareTripRequest) (*domain.TripIntent, error) {
	if !validation.ValidUserID(req.UserID) {
		return nil, ErrInvalidUserID
	}

	intent := &domain.TripIntent{
		UserID:      req.UserID,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		UpdatedAt:   s.now().UTC(),
	}
	if err := validation.Struct(intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTripIntent, err)
	}

	if err := s.sessions.PutTripIntent(ctx, intent, s.ttl); err != nil {
		return nil, storeFailure(err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, tripDeclaredNotification(intent)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", intent.UserID).Msg("trip notification failed")
		}
	}
	return intent, nil
}

// Get returns the traveler's active intent.
func (s *TripIntentService) Get(ctx context.Context, userID string) (*domain.TripIntent, error) {
	if !validation.ValidUserID(userID) {
		return nil, ErrInvalidUserID
	}
	intent, err := s.sessions.GetTripIntent(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMalformedRecord) {
			return nil, ErrNoActiveSession
		}
		return nil, storeFailure(err)
	}
	if intent == nil {
		return nil, ErrNoActiveSession
	}
	return intent, nil
}

// Cancel removes the traveler's intent. Cancelling without an intent succeeds.
func (s *TripIntentService) Cancel(ctx context.Context, userID string) error {
	if !validation.ValidUserID(userID) {
		return ErrInvalidUserID
	}
	if err := s.sessions.DeleteTripIntent(ctx, userID); err != nil {
		return storeFailure(err)
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, tripCancelledNotification(userID)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("trip notification failed")
		}
	}
	return nil
}
