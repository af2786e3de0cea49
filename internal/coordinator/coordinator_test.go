package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCoordinator(t *testing.T) (*Coordinator, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client), mr
}

func TestLock_MutualExclusion(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	unlock, ok, err := c.Lock(ctx, "room:abc", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.Lock(ctx, "room:abc", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second lock attempt on the same room must fail")

	require.NoError(t, unlock(ctx))

	_, ok, err = c.Lock(ctx, "room:abc", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be re-acquirable after unlock")
}

func TestUnlock_TokenMismatchAfterExpiry(t *testing.T) {
	c, mr := setupCoordinator(t)
	ctx := context.Background()

	unlock, ok, err := c.Lock(ctx, "room:abc", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = c.Lock(ctx, "room:abc", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok, "lock must be acquirable again once expired")

	err = unlock(ctx)
	assert.ErrorIs(t, err, ErrNotHeld, "stale unlock must not release the new holder's lock")
}

func TestTryClaimPoll_ExactlyOnce(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.RequestPoll(ctx, "meeting-1"))

	claimed, err := c.TryClaimPoll(ctx, "meeting-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = c.TryClaimPoll(ctx, "meeting-1")
	require.NoError(t, err)
	assert.False(t, claimed, "a second claim attempt must observe nothing to claim")
}

func TestPendingJoins(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	has, err := c.HasPendingJoins(ctx, "meeting-1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, c.MarkPendingJoin(ctx, "meeting-1", "user-1"))

	has, err = c.HasPendingJoins(ctx, "meeting-1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, c.ClearPendingJoin(ctx, "meeting-1", "user-1"))

	has, err = c.HasPendingJoins(ctx, "meeting-1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPendingJoins_ExpireAfterTTL(t *testing.T) {
	c, mr := setupCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.MarkPendingJoin(ctx, "meeting-1", "user-1"))
	mr.FastForward(31 * time.Second)

	has, err := c.HasPendingJoins(ctx, "meeting-1")
	require.NoError(t, err)
	assert.False(t, has, "pending join marker must expire after its TTL")
}
