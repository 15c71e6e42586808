package revocation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as JSON values with a PX expiry equal to the
// remaining lifetime, so Redis does the eviction.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	clock  func() time.Time
}

func NewRedisStore(rdb redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, clock: time.Now}
}

func (s *RedisStore) Revoke(ctx context.Context, e Entry) (bool, error) {
	if s.rdb == nil {
		return false, ErrNotConfigured
	}
	if err := validate(e); err != nil {
		return false, err
	}
	ttl := e.NaturalExpiry.Sub(s.clock())
	if ttl <= 0 {
		return true, nil
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	b, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("revocation: encode entry: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.prefix+e.Key, b, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: redis setnx: %w", err)
	}
	return ok, nil
}

// Put overwrites the key with a fresh PX. The read before the write keeps
// an older concurrent action from pulling the cutoff back.
func (s *RedisStore) Put(ctx context.Context, e Entry) error {
	if s.rdb == nil {
		return ErrNotConfigured
	}
	if err := validate(e); err != nil {
		return err
	}
	now := s.clock()
	ttl := e.NaturalExpiry.Sub(now)
	if ttl <= 0 {
		return nil
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	cur, err := s.Lookup(ctx, e.Key)
	if err != nil {
		return err
	}
	if len(cur) == 1 && !supersedes(e, cur[0], now) {
		return nil
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("revocation: encode entry: %w", err)
	}
	if err := s.rdb.Set(ctx, s.prefix+e.Key, b, ttl).Err(); err != nil {
		return fmt.Errorf("revocation: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, keys ...string) ([]Entry, error) {
	if s.rdb == nil {
		return nil, ErrNotConfigured
	}
	if len(keys) == 0 {
		return nil, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}

	vals, err := s.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("revocation: redis mget: %w", err)
	}

	now := s.clock()
	var out []Entry
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("revocation: corrupt entry %q: %w", keys[i], err)
		}
		if e.Live(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ Store = (*RedisStore)(nil)
