package service

import (
	"context"
	"errors"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/metrics"
	"companion/internal/redis"
	"companion/internal/repository"
)

const (
	defaultBatchWait    = 2 * time.Millisecond
	defaultBatchTimeout = 2 * time.Second
)

// ProfileLoader serves static profiles from the Redis cache, falling back to
// PostgreSQL for misses. Concurrent lookups are coalesced into one cache
// pipeline and one SQL query per batch.
type ProfileLoader struct {
	cache   redis.ProfileCacheInterface
	repo    repository.ProfileRepository
	loader  *dataloader.Loader[string, *domain.StaticProfile]
	timeout time.Duration
}

// NewProfileLoader creates a loader. cache may be nil. wait is how long a
// batch collects keys; timeout bounds each batch's store calls.
func NewProfileLoader(cache redis.ProfileCacheInterface, repo repository.ProfileRepository, wait, timeout time.Duration) *ProfileLoader {
	if wait <= 0 {
		wait = defaultBatchWait
	}
	if timeout <= 0 {
		timeout = defaultBatchTimeout
	}

	l := &ProfileLoader{cache: cache, repo: repo, timeout: timeout}
	l.loader = dataloader.NewBatchedLoader(
		l.batch,
		dataloader.WithWait[string, *domain.StaticProfile](wait),
		// Profiles change; every lookup must reach the stores.
		dataloader.WithCache[string, *domain.StaticProfile](&dataloader.NoCache[string, *domain.StaticProfile]{}),
	)
	return l
}

type loadResult struct {
	profile *domain.StaticProfile
	err     error
}

// GetStaticProfile returns the user's profile, or nil when there is none.
// It returns as soon as ctx is done, even if the batch is still running.
func (l *ProfileLoader) GetStaticProfile(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	thunk := l.loader.Load(ctx, userID)

	done := make(chan loadResult, 1)
	go func() {
		p, err := thunk()
		done <- loadResult{profile: p, err: err}
	}()

	select {
	case r := <-done:
		return r.profile, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// batch resolves ids from cache, then PostgreSQL. The batch runs on behalf of
// several callers, so it is detached from the cancellation of whichever
// caller happened to start it.
func (l *ProfileLoader) batch(ctx context.Context, ids []string) []*dataloader.Result[*domain.StaticProfile] {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	found := make(map[string]*domain.StaticProfile, len(ids))
	missing := ids

	if l.cache != nil {
		cached, miss, err := l.cache.GetProfilesBatch(ctx, ids)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("profile cache unavailable, reading through")
		} else {
			for id, p := range cached {
				found[id] = p
			}
			missing = miss
		}
	}
	metrics.ProfileCacheHits.Add(float64(len(found)))
	metrics.ProfileCacheMisses.Add(float64(len(missing)))

	var dbErr error
	if len(missing) > 0 {
		fromDB, err := l.repo.GetByUserIDs(ctx, missing)
		if err != nil {
			dbErr = err
		} else {
			fill := make([]*domain.StaticProfile, 0, len(fromDB))
			for id, p := range fromDB {
				found[id] = p
				fill = append(fill, p)
			}
			l.cacheAsync(fill)
		}
	}

	results := make([]*dataloader.Result[*domain.StaticProfile], len(ids))
	for i, id := range ids {
		if p, ok := found[id]; ok {
			results[i] = &dataloader.Result[*domain.StaticProfile]{Data: p}
			continue
		}
		results[i] = &dataloader.Result[*domain.StaticProfile]{Error: dbErr}
	}
	return results
}

// cacheAsync writes profiles back to the cache (fire and forget).
func (l *ProfileLoader) cacheAsync(profiles []*domain.StaticProfile) {
	if l.cache == nil || len(profiles) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.cache.SetProfilesBatch(ctx, profiles); err != nil {
			logging.Debug().Err(err).Msg("profile cache fill failed")
		}
	}()
}

// Refresh installs p in the cache after a profile write. When the write
// fails the entry is dropped instead; if that fails too, readers may see the
// previous profile until the entry's TTL runs out.
func (l *ProfileLoader) Refresh(ctx context.Context, p *domain.StaticProfile) error {
	if l.cache == nil {
		return nil
	}
	err := l.cache.SetProfile(ctx, p)
	if err == nil {
		return nil
	}
	if delErr := l.cache.InvalidateProfile(ctx, p.UserID); delErr != nil {
		return errors.Join(err, delErr)
	}
	return nil
}

var _ ProfileStore = (*ProfileLoader)(nil)
