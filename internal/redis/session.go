package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/metrics"
	"companion/internal/repository"
	"companion/internal/validation"
)

// DefaultSessionTTL is how long a declared trip intent stays active.
const DefaultSessionTTL = 24 * time.Hour

const (
	sessionKeyPrefix = "session:user:"
	// activeSessionsKey is a sorted set of user ids scored by expiry (unix seconds).
	activeSessionsKey = "sessions:active"
)

// SessionStore keeps trip intents in Redis. Each intent lives under its own
// key with a TTL and is indexed in a sorted set so active intents can be
// listed without scanning the keyspace.
type SessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// PutTripIntent stores intent, replacing any previous intent of the same user.
func (s *SessionStore) PutTripIntent(ctx context.Context, intent *domain.TripIntent, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(ttl).Unix()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(intent.UserID), data, ttl)
		pipe.ZAdd(ctx, activeSessionsKey, redis.Z{Score: float64(expiresAt), Member: intent.UserID})
		return nil
	})
	return err
}

// GetTripIntent returns the user's active intent, or nil when there is none.
func (s *SessionStore) GetTripIntent(ctx context.Context, userID string) (*domain.TripIntent, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeTripIntent(userID, data)
}

// DeleteTripIntent removes the user's intent. Deleting a missing intent is not an error.
func (s *SessionStore) DeleteTripIntent(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(userID))
		pipe.ZRem(ctx, activeSessionsKey, userID)
		return nil
	})
	return err
}

// ListActiveTripIntents returns every unexpired intent. Records that expire or
// are removed between the index read and the value read are left out, as are
// records that fail to decode.
func (s *SessionStore) ListActiveTripIntents(ctx context.Context) ([]*domain.TripIntent, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)

	// Prune index entries whose value key has already expired.
	if err := s.client.ZRemRangeByScore(ctx, activeSessionsKey, "-inf", "("+now).Err(); err != nil {
		return nil, err
	}

	ids, err := s.client.ZRangeByScore(ctx, activeSessionsKey, &redis.ZRangeBy{Min: now, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.TripIntent{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	intents := make([]*domain.TripIntent, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		intent, err := decodeTripIntent(ids[i], data)
		if err != nil {
			metrics.MalformedRecords.WithLabelValues("session").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", ids[i]).Msg("skipping malformed trip intent")
			continue
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

func decodeTripIntent(userID string, data []byte) (*domain.TripIntent, error) {
	var intent domain.TripIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", repository.ErrMalformedRecord, userID, err)
	}
	if intent.UserID != userID {
		return nil, fmt.Errorf("%w: session %s: stored for %q", repository.ErrMalformedRecord, userID, intent.UserID)
	}
	if err := validation.Struct(&intent); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", repository.ErrMalformedRecord, userID, err)
	}
	return &intent, nil
}
