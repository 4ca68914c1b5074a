package presence

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

// Without a Redis client the store runs on its process-local map; these
// tests pin down that fallback behavior.

func TestLocalOnlineLifecycle(t *testing.T) {
    s := NewStore(nil, time.Minute)
    ctx := context.Background()

    assert.False(t, s.IsOnline(ctx, 1))

    s.MarkOnline(ctx, 1)
    s.MarkOnline(ctx, 2)
    assert.True(t, s.IsOnline(ctx, 1))
    assert.True(t, s.IsOnline(ctx, 2))
    assert.ElementsMatch(t, []uint64{1, 2}, s.OnlineUsers(ctx))

    s.MarkOffline(ctx, 1)
    assert.False(t, s.IsOnline(ctx, 1))
    assert.ElementsMatch(t, []uint64{2}, s.OnlineUsers(ctx))
}

func TestMarkOnlineIsIdempotent(t *testing.T) {
    s := NewStore(nil, time.Minute)
    ctx := context.Background()

    s.MarkOnline(ctx, 5)
    s.MarkOnline(ctx, 5)
    assert.ElementsMatch(t, []uint64{5}, s.OnlineUsers(ctx))
}

func TestNewStoreClampsTTL(t *testing.T) {
    s := NewStore(nil, time.Second)
    assert.Equal(t, 10*time.Second, s.ttl)

    s = NewStore(nil, time.Minute)
    assert.Equal(t, time.Minute, s.ttl)
}
