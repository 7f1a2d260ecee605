package audit

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisStore appends JSON-encoded entries to a Redis list, plus a per-unit list so
// unit-scoped reads only touch that unit's entries.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates an audit store on the given client. prefix namespaces keys.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pa"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) logKey() string {
	return s.prefix + ":log"
}

func (s *RedisStore) unitKey(unitID string) string {
	return s.prefix + ":unit:" + unitID
}

// Append writes e to the global list and, when scoped, to its unit list in one
// MULTI/EXEC.
func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.logKey(), data)
		if e.UnitID != "" {
			pipe.RPush(ctx, s.unitKey(e.UnitID), data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis: %v", ErrStorage, err)
	}
	return nil
}

// Candidates reads the unit list when pf is unit-scoped, the global list otherwise.
func (s *RedisStore) Candidates(ctx context.Context, pf Prefilter) ([]Entry, error) {
	key := s.logKey()
	if pf.UnitID != "" {
		key = s.unitKey(pf.UnitID)
	}

	raw, err := s.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis: %v", ErrStorage, err)
	}

	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("%w: decode entry: %v", ErrStorage, err)
		}
		if pf.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
