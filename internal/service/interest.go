package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/repository"
	"companion/internal/validation"
)

// InterestAction is a recipient's answer to a received interest.
type InterestAction string

const (
	ActionAccept  InterestAction = "accept"
	ActionDecline InterestAction = "decline"
)

// InterestService lets travelers signal interest in a candidate and answer
// the interests they receive.
type InterestService struct {
	sessions SessionStore
	repo     repository.InterestRepository
	notifier Notifier
	now      func() time.Time
}

// NewInterestService creates a new InterestService. notifier may be nil.
func NewInterestService(sessions SessionStore, repo repository.InterestRepository, notifier Notifier) *InterestService {
	return &InterestService{sessions: sessions, repo: repo, notifier: notifier, now: time.Now}
}

// ExpressResult is the outcome of Express.
type ExpressResult struct {
	Interest *domain.Interest
	// Created is false when the interest had already been expressed.
	Created bool
	// Mutual is true when the recipient had already expressed interest back.
	Mutual bool
}

// Express records fromID's interest in toID for fromID's current
// destination. When toID already has a pending interest in fromID for the
// same destination, both are accepted and both travelers are notified.
func (s *InterestService) Express(ctx context.Context, fromID, toID string) (*ExpressResult, error) {
	if !validation.ValidUserID(fromID) || !validation.ValidUserID(toID) {
		return nil, ErrInvalidUserID
	}
	if fromID == toID {
		return nil, ErrInvalidInterest
	}

	intent, err := s.sessions.GetTripIntent(ctx, fromID)
	if err != nil && !errors.Is(err, repository.ErrMalformedRecord) {
		return nil, storeFailure(err)
	}
	if intent == nil {
		return nil, ErrNoActiveSession
	}

	now := s.now().UTC()
	in := &domain.Interest{
		ID:          uuid.NewString(),
		FromUserID:  fromID,
		ToUserID:    toID,
		Destination: intent.Destination,
		Status:      domain.InterestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, storeFailure(err)
	}
	if created {
		s.notify(ctx, interestReceivedNotification(in))
	} else {
		if in, err = s.repo.GetByPair(ctx, fromID, toID, intent.Destination); err != nil {
			return nil, storeFailure(err)
		}
	}
	result := &ExpressResult{Interest: in, Created: created}

	// A repeat still completes a mutual match an earlier attempt missed.
	if in.Status != domain.InterestPending {
		return result, nil
	}
	reverse, err := s.repo.GetByPair(ctx, toID, fromID, intent.Destination)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return result, nil
	case err != nil:
		return nil, storeFailure(err)
	case reverse.Status != domain.InterestPending:
		return result, nil
	}

	if err := s.repo.MarkMutual(ctx, fromID, toID, intent.Destination, now); err != nil {
		return nil, storeFailure(err)
	}
	in.Status = domain.InterestAccepted
	in.UpdatedAt = now
	result.Mutual = true

	logging.Ctx(ctx).Info().
		Str("user_id", fromID).
		Str("matched_with", toID).
		Str("destination", intent.Destination).
		Msg("mutual interest")
	s.notify(ctx, matchAcceptedNotification(fromID, toID, in))
	s.notify(ctx, matchAcceptedNotification(toID, fromID, in))
	return result, nil
}

// Received returns the pending interests addressed to userID, newest first.
func (s *InterestService) Received(ctx context.Context, userID string) ([]*domain.Interest, error) {
	if !validation.ValidUserID(userID) {
		return nil, ErrInvalidUserID
	}
	list, err := s.repo.ListReceived(ctx, userID, domain.InterestPending)
	if err != nil {
		return nil, storeFailure(err)
	}
	if list == nil {
		list = []*domain.Interest{}
	}
	return list, nil
}

// Respond accepts or declines an interest addressed to userID. Accepting
// notifies the sender.
func (s *InterestService) Respond(ctx context.Context, userID, interestID string, action InterestAction) (*domain.Interest, error) {
	if !validation.ValidUserID(userID) {
		return nil, ErrInvalidUserID
	}

	var status domain.InterestStatus
	switch action {
	case ActionAccept:
		status = domain.InterestAccepted
	case ActionDecline:
		status = domain.InterestRejected
	default:
		return nil, ErrInvalidResponse
	}

	in, err := s.repo.GetByID(ctx, interestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInterestNotFound
		}
		return nil, storeFailure(err)
	}
	// Interests addressed to someone else are reported as missing.
	if in.ToUserID != userID {
		return nil, ErrInterestNotFound
	}
	if in.Status != domain.InterestPending {
		return nil, ErrInterestResolved
	}

	now := s.now().UTC()
	resolved, err := s.repo.Resolve(ctx, in.ID, status, now)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !resolved {
		return nil, ErrInterestResolved
	}
	in.Status = status
	in.UpdatedAt = now

	if status == domain.InterestAccepted {
		s.notify(ctx, matchAcceptedNotification(in.FromUserID, in.ToUserID, in))
	}
	return in, nil
}

func (s *InterestService) notify(ctx context.Context, n Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("type", string(n.Type)).Str("recipient", n.RecipientID).Msg("interest notification failed")
	}
}
