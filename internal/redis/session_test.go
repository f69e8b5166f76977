package redis

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companion/internal/domain"
	"companion/internal/repository"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testIntent(userID, dest string) *domain.TripIntent {
	start := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	return &domain.TripIntent{
		UserID:      userID,
		Destination: dest,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 4),
		Budget:      1500,
	}
}

func TestSessionStore_PutGet(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewSessionStore(client)

	require.NoError(t, store.PutTripIntent(ctx, testIntent("u1", "Paris"), time.Hour))

	got, err := store.GetTripIntent(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Paris", got.Destination)
	assert.Equal(t, 1500.0, got.Budget)

	// Last write wins.
	require.NoError(t, store.PutTripIntent(ctx, testIntent("u1", "Rome"), time.Hour))
	got, err = store.GetTripIntent(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Rome", got.Destination)
}

func TestSessionStore_GetMissingReturnsNil(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client)

	got, err := store.GetTripIntent(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_GetMalformed(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewSessionStore(client)

	require.NoError(t, mr.Set(sessionKey("u1"), "{not json"))
	_, err := store.GetTripIntent(ctx, "u1")
	assert.True(t, errors.Is(err, repository.ErrMalformedRecord))

	// Well-formed JSON with a missing destination fails validation.
	require.NoError(t, mr.Set(sessionKey("u2"), `{"userId":"u2","startDate":"2026-01-01T00:00:00Z","endDate":"2026-01-02T00:00:00Z"}`))
	_, err = store.GetTripIntent(ctx, "u2")
	assert.True(t, errors.Is(err, repository.ErrMalformedRecord))
}

func TestSessionStore_ListActive(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewSessionStore(client)

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.PutTripIntent(ctx, testIntent("u1", "Paris"), time.Hour))
	require.NoError(t, store.PutTripIntent(ctx, testIntent("u2", "Paris"), 2*time.Hour))
	require.NoError(t, store.PutTripIntent(ctx, testIntent("u3", "Tokyo"), time.Hour))
	require.NoError(t, store.DeleteTripIntent(ctx, "u3"))

	// Corrupt u2's value; it must be skipped, not fail the listing.
	require.NoError(t, mr.Set(sessionKey("u2"), "garbage"))

	intents, err := store.ListActiveTripIntents(ctx)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "u1", intents[0].UserID)
}

func TestSessionStore_ListActivePrunesExpired(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewSessionStore(client)

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.PutTripIntent(ctx, testIntent("short", "Paris"), time.Minute))
	require.NoError(t, store.PutTripIntent(ctx, testIntent("long", "Paris"), time.Hour))

	now = now.Add(10 * time.Minute)
	mr.FastForward(10 * time.Minute)

	intents, err := store.ListActiveTripIntents(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(intents))
	for _, i := range intents {
		ids = append(ids, i.UserID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"long"}, ids)

	members, err := mr.ZMembers(activeSessionsKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, members)
}

func TestSessionStore_ListActiveSkipsVanishedValues(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewSessionStore(client)

	require.NoError(t, store.PutTripIntent(ctx, testIntent("u1", "Paris"), time.Hour))
	mr.Del(sessionKey("u1"))

	intents, err := store.ListActiveTripIntents(ctx)
	require.NoError(t, err)
	assert.Empty(t, intents)
}

func TestSessionStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewSessionStore(client)

	_, err := store.GetTripIntent(context.Background(), "u1")
	assert.Error(t, err)

	_, err = store.ListActiveTripIntents(context.Background())
	assert.Error(t, err)
}
