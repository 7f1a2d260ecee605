package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by [Store.Get] when no session matches the token hash.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store persists sessions keyed by token hash. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save writes sess; ttl bounds how long the backend may keep it.
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	// Get returns the session for tokenHash or [ErrNotFound].
	Get(ctx context.Context, tokenHash [32]byte) (*Session, error)
	// Delete removes the session and reports whether it existed. Deleting a missing
	// session is not an error.
	Delete(ctx context.Context, tokenHash [32]byte) (bool, error)
	// DeleteAllForUser removes every session of userID and returns how many were removed.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// RedisStore is a Redis-backed [Store]. Each session lives under prefix:<hash> with a
// key TTL, and a per-user set prefix:u:<userID> indexes live hashes for bulk revocation.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a session store on the given client. prefix namespaces keys.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ps"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(hash string) string {
	return s.prefix + ":" + hash
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save persists a [Session] with the given TTL.
//
//	Performance: 1 MULTI/EXEC (SET + SADD + EXPIRE).
func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	hash := hashHex(sess.TokenHash)
	userKey := s.userKey(sess.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(hash), data, ttl)
		pipe.SAdd(ctx, userKey, hash)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the session stored under tokenHash.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Get(ctx context.Context, tokenHash [32]byte) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(hashHex(tokenHash))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.TokenHash = tokenHash
	return sess, nil
}

// Delete removes a session and its index entry atomically.
//
//	Performance: 1 GET + 1 Lua EVALSHA.
func (s *RedisStore) Delete(ctx context.Context, tokenHash [32]byte) (bool, error) {
	hash := hashHex(tokenHash)
	key := s.key(hash)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	userID := ""
	if sess, decodeErr := Decode(data); decodeErr == nil {
		userID = sess.UserID
	}

	existed, err := deleteSessionLua.Run(ctx, s.redis, []string{key, s.userKey(userID)}, hash).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// DeleteAllForUser removes every indexed session of userID.
//
// The set is read before the delete, so a session saved in between survives until
// its own expiry or the next call.
func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	hashes, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, hash := range hashes {
		keys = append(keys, s.key(hash))
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(delCmd.Val()), nil
}

// Ping measures a Redis round trip.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
