package redis

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"companion/internal/domain"
	"companion/internal/logging"
)

// DefaultProfileCacheTTL bounds how stale a cached profile may be.
const DefaultProfileCacheTTL = 5 * time.Minute

const profileCachePrefix = "cache:profile:"

// ProfileCache is a read-through cache of static profiles.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache creates a new ProfileCache. A non-positive ttl uses DefaultProfileCacheTTL.
func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileCacheTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// CachedProfile is the cached form of a static profile.
type CachedProfile struct {
	UserID      string   `json:"user_id"`
	Age         int      `json:"age"`
	Interests   []string `json:"interests"`
	TravelModes []string `json:"travel_modes"`
	Profession  string   `json:"profession"`
}

func toCached(p *domain.StaticProfile) *CachedProfile {
	return &CachedProfile{
		UserID:      p.UserID,
		Age:         p.Age,
		Interests:   p.Interests,
		TravelModes: p.TravelModes,
		Profession:  p.Profession,
	}
}

func (c *CachedProfile) toDomain() *domain.StaticProfile {
	return &domain.StaticProfile{
		UserID:      c.UserID,
		Age:         c.Age,
		Interests:   c.Interests,
		TravelModes: c.TravelModes,
		Profession:  c.Profession,
	}
}

// GetProfile retrieves a profile from cache. A miss returns nil, nil.
func (s *ProfileCache) GetProfile(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	data, err := s.client.Get(ctx, profileCachePrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedProfile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil // Treat corrupt entries as misses; the next write replaces them.
	}
	return cached.toDomain(), nil
}

// SetProfile stores a profile in cache.
func (s *ProfileCache) SetProfile(ctx context.Context, profile *domain.StaticProfile) error {
	data, err := json.Marshal(toCached(profile))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, profileCachePrefix+profile.UserID, data, s.ttl).Err()
}

// InvalidateProfile removes a profile from cache.
func (s *ProfileCache) InvalidateProfile(ctx context.Context, userID string) error {
	return s.client.Del(ctx, profileCachePrefix+userID).Err()
}

// GetProfilesBatch retrieves multiple profiles using a pipeline.
// Returns a map of userID -> profile and the ids that were not cached.
func (s *ProfileCache) GetProfilesBatch(ctx context.Context, userIDs []string) (map[string]*domain.StaticProfile, []string, error) {
	result := make(map[string]*domain.StaticProfile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.Get(ctx, profileCachePrefix+id)
	}

	// Exec reports redis.Nil when any key is missing; per-command errors are checked below.
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, err
	}

	var missing []string
	for i, cmd := range cmds {
		id := userIDs[i]
		data, err := cmd.Bytes()
		if err != nil {
			missing = append(missing, id)
			continue
		}

		var cached CachedProfile
		if err := json.Unmarshal(data, &cached); err != nil {
			logging.Ctx(ctx).Debug().Str("user_id", id).Msg("dropping corrupt cached profile")
			missing = append(missing, id)
			continue
		}
		result[id] = cached.toDomain()
	}

	return result, missing, nil
}

// SetProfilesBatch fills missing entries using a pipeline. Existing entries
// are left alone, so a fill that read the database before a profile write
// cannot overwrite the entry that write installed.
func (s *ProfileCache) SetProfilesBatch(ctx context.Context, profiles []*domain.StaticProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, p := range profiles {
		data, err := json.Marshal(toCached(p))
		if err != nil {
			continue // Skip invalid entries
		}
		pipe.SetNX(ctx, profileCachePrefix+p.UserID, data, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}
