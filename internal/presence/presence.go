// Package presence tracks which users currently hold a live chat socket.
// State lives in Redis, keyed per user with a TTL refreshed by the socket
// heartbeat, so several server instances agree on who is online and a
// crashed instance's users fall offline once their keys lapse. When no
// Redis client is available the store degrades to a process-local map,
// which is correct for a single instance.
package presence

import (
    "context"
    "strconv"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

const (
    keyPrefix = "presence:user:"
    setKey    = "presence:online"
)

// Store answers "is this user online" and enumerates online users. All
// methods are safe for concurrent use.
type Store struct {
    rdb *redis.Client
    ttl time.Duration

    mu    sync.RWMutex
    local map[uint64]struct{}
}

// NewStore builds a Store over the given Redis client. A nil client
// switches the store to local-only mode. ttl bounds how long a user stays
// online after their last heartbeat; values below 10s are clamped.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
    if ttl < 10*time.Second {
        ttl = 10 * time.Second
    }
    return &Store{rdb: rdb, ttl: ttl, local: make(map[uint64]struct{})}
}

func userKey(id uint64) string { return keyPrefix + strconv.FormatUint(id, 10) }

// MarkOnline records the user as online and starts their TTL window.
// Called on socket connect and refreshed by Heartbeat.
func (s *Store) MarkOnline(ctx context.Context, userID uint64) {
    s.mu.Lock()
    s.local[userID] = struct{}{}
    s.mu.Unlock()
    if s.rdb == nil {
        return
    }
    pipe := s.rdb.Pipeline()
    pipe.Set(ctx, userKey(userID), 1, s.ttl)
    pipe.SAdd(ctx, setKey, userID)
    _, _ = pipe.Exec(ctx)
}

// Heartbeat extends the user's online window. Invoked from the socket
// ping loop.
func (s *Store) Heartbeat(ctx context.Context, userID uint64) {
    if s.rdb == nil {
        return
    }
    _ = s.rdb.Expire(ctx, userKey(userID), s.ttl).Err()
}

// MarkOffline removes the user. Called on socket disconnect.
func (s *Store) MarkOffline(ctx context.Context, userID uint64) {
    s.mu.Lock()
    delete(s.local, userID)
    s.mu.Unlock()
    if s.rdb == nil {
        return
    }
    pipe := s.rdb.Pipeline()
    pipe.Del(ctx, userKey(userID))
    pipe.SRem(ctx, setKey, userID)
    _, _ = pipe.Exec(ctx)
}

// IsOnline reports whether the user has a live socket anywhere. Redis is
// the source of truth when available; the per-user key (not the set) is
// checked because only the key carries the TTL.
func (s *Store) IsOnline(ctx context.Context, userID uint64) bool {
    if s.rdb != nil {
        n, err := s.rdb.Exists(ctx, userKey(userID)).Result()
        if err == nil {
            return n > 0
        }
    }
    s.mu.RLock()
    defer s.mu.RUnlock()
    _, ok := s.local[userID]
    return ok
}

// OnlineUsers returns the IDs of all currently online users. Set members
// whose per-user key has lapsed are swept opportunistically so the set
// does not grow stale entries forever.
func (s *Store) OnlineUsers(ctx context.Context) []uint64 {
    if s.rdb != nil {
        members, err := s.rdb.SMembers(ctx, setKey).Result()
        if err == nil {
            out := make([]uint64, 0, len(members))
            for _, m := range members {
                id, err := strconv.ParseUint(m, 10, 64)
                if err != nil {
                    continue
                }
                if n, err := s.rdb.Exists(ctx, userKey(id)).Result(); err == nil && n == 0 {
                    _ = s.rdb.SRem(ctx, setKey, id).Err()
                    continue
                }
                out = append(out, id)
            }
            return out
        }
    }
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]uint64, 0, len(s.local))
    for id := range s.local {
        out = append(out, id)
    }
    return out
}
