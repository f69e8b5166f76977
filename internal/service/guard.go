package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/metrics"
	"companion/internal/redis"
	"companion/internal/repository"
)

// BreakerOptions configures the circuit breakers in front of each store.
type BreakerOptions struct {
	// Timeout is how long an open breaker waits before probing again.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
}

type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

func newBreaker(name string, opts BreakerOptions) *breaker {
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		// Bad data and caller cancellation say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, repository.ErrMalformedRecord) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return &breaker{name: name, cb: cb}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// execute runs fn through the breaker and normalizes failures.
func execute[T any](b *breaker, op string, fn func() (T, error)) (T, error) {
	var zero T
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, repository.ErrMalformedRecord) || errors.Is(err, context.Canceled) {
			return zero, err
		}
		metrics.StoreErrors.WithLabelValues(b.name, op).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s circuit open", ErrStoreUnavailable, b.name)
		}
		return zero, fmt.Errorf("%w: %s %s: %w", ErrStoreUnavailable, b.name, op, err)
	}
	typed, ok := res.(T)
	if !ok && res != nil {
		return zero, fmt.Errorf("%s %s: unexpected result type %T", b.name, op, res)
	}
	return typed, nil
}

// GuardedSessionStore puts a circuit breaker in front of a session store.
type GuardedSessionStore struct {
	next redis.SessionStoreInterface
	b    *breaker
}

// NewGuardedSessionStore wraps next.
func NewGuardedSessionStore(next redis.SessionStoreInterface, opts BreakerOptions) *GuardedSessionStore {
	return &GuardedSessionStore{next: next, b: newBreaker("session-store", opts)}
}

func (g *GuardedSessionStore) GetTripIntent(ctx context.Context, userID string) (*domain.TripIntent, error) {
	return execute(g.b, "get", func() (*domain.TripIntent, error) {
		return g.next.GetTripIntent(ctx, userID)
	})
}

func (g *GuardedSessionStore) ListActiveTripIntents(ctx context.Context) ([]*domain.TripIntent, error) {
	return execute(g.b, "list_active", func() ([]*domain.TripIntent, error) {
		return g.next.ListActiveTripIntents(ctx)
	})
}

func (g *GuardedSessionStore) PutTripIntent(ctx context.Context, intent *domain.TripIntent, ttl time.Duration) error {
	_, err := execute(g.b, "put", func() (struct{}, error) {
		return struct{}{}, g.next.PutTripIntent(ctx, intent, ttl)
	})
	return err
}

func (g *GuardedSessionStore) DeleteTripIntent(ctx context.Context, userID string) error {
	_, err := execute(g.b, "delete", func() (struct{}, error) {
		return struct{}{}, g.next.DeleteTripIntent(ctx, userID)
	})
	return err
}

// GuardedProfileStore puts a circuit breaker in front of a profile store.
type GuardedProfileStore struct {
	next ProfileStore
	b    *breaker
}

// NewGuardedProfileStore wraps next.
func NewGuardedProfileStore(next ProfileStore, opts BreakerOptions) *GuardedProfileStore {
	return &GuardedProfileStore{next: next, b: newBreaker("profile-store", opts)}
}

func (g *GuardedProfileStore) GetStaticProfile(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	return execute(g.b, "get", func() (*domain.StaticProfile, error) {
		return g.next.GetStaticProfile(ctx, userID)
	})
}

var (
	_ SessionStore                = (*GuardedSessionStore)(nil)
	_ redis.SessionStoreInterface = (*GuardedSessionStore)(nil)
	_ ProfileStore                = (*GuardedProfileStore)(nil)
)
