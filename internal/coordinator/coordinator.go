// Package coordinator provides the distributed primitives workers need
// to cooperate without a shared process: room locks, one-shot poll
// flags, and pending-join markers. Backed by Redis.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Unlock when the lock was already released
// or re-acquired by someone else (token mismatch).
var ErrNotHeld = errors.New("coordinator: lock not held")

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPrefix sets the key prefix for all Redis keys. Default "reflector".
func WithPrefix(prefix string) Option {
	return func(c *Coordinator) { c.prefix = prefix }
}

// Coordinator wraps a Redis client with the lock/poll-flag/pending-join
// primitives the recording pipeline relies on for cross-pod coordination.
type Coordinator struct {
	client *redis.Client
	prefix string
}

// New constructs a Coordinator over an existing Redis client.
func New(client *redis.Client, opts ...Option) *Coordinator {
	c := &Coordinator{client: client, prefix: "reflector"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// unlockScript deletes a lock key only if it still holds the token we
// set when acquiring it, so a caller can never release a lock some
// other process re-acquired after our TTL expired.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// Lock acquires a named, TTL-bounded mutual-exclusion lock (e.g.
// "room:{room_id}") and returns an Unlock func. It does not block: if
// the lock is already held, ok is false and err is nil. The unlock func
// returns ErrNotHeld when the lock has expired or is held by another token.
func (c *Coordinator) Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	key := c.key("lock", name)

	acquired, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		return nil, false, nil
	}

	unlock = func(ctx context.Context) error {
		res, err := unlockScript.Run(ctx, c.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		if res == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return unlock, true, nil
}

// RequestPoll marks a meeting as needing an out-of-band poll (idempotent:
// calling it repeatedly before the flag is claimed has no additional
// effect).
func (c *Coordinator) RequestPoll(ctx context.Context, meetingID string) error {
	return c.client.Set(ctx, c.key("meeting_poll_requested", meetingID), 1, 0).Err()
}

// TryClaimPoll atomically consumes the poll flag for a meeting. Exactly
// one caller observes claimed=true for a given RequestPoll call.
func (c *Coordinator) TryClaimPoll(ctx context.Context, meetingID string) (claimed bool, err error) {
	_, err = c.client.GetDel(ctx, c.key("meeting_poll_requested", meetingID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim poll %s: %w", meetingID, err)
	}
	return true, nil
}

const pendingJoinTTL = 30 * time.Second

// MarkPendingJoin records that userID is mid-join to meetingID, with a
// 30s TTL matching the expected join-handshake window.
func (c *Coordinator) MarkPendingJoin(ctx context.Context, meetingID, userID string) error {
	return c.client.Set(ctx, c.pendingJoinKey(meetingID, userID), 1, pendingJoinTTL).Err()
}

// ClearPendingJoin removes a pending-join marker once the join
// completes (or fails) before the TTL elapses.
func (c *Coordinator) ClearPendingJoin(ctx context.Context, meetingID, userID string) error {
	return c.client.Del(ctx, c.pendingJoinKey(meetingID, userID)).Err()
}

// HasPendingJoins reports whether any participant is mid-join to
// meetingID. Scans in batches of 100 rather than KEYS, so it never
// blocks Redis on a large keyspace.
func (c *Coordinator) HasPendingJoins(ctx context.Context, meetingID string) (bool, error) {
	pattern := c.key("pending_join", meetingID, "*")
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("scan pending joins for %s: %w", meetingID, err)
	}
	return false, nil
}

func (c *Coordinator) pendingJoinKey(meetingID, userID string) string {
	return c.key("pending_join", meetingID, userID)
}
