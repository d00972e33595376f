package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type redisStore struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

// appendUniqueScript adds itemID to the id set and pushes value only when the id was new.
var appendUniqueScript = goredis.NewScript(`
if redis.call("SADD", KEYS[1], ARGV[1]) == 1 then
  redis.call("RPUSH", KEYS[2], ARGV[2])
  return 1
end
return 0
`)

func NewRedis(ctx context.Context, log *logger.Logger, addr, prefix string) (Store, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWithClient(log, rdb, prefix), nil
}

func NewRedisWithClient(log *logger.Logger, rdb goredis.UniversalClient, prefix string) Store {
	if prefix == "" {
		prefix = "eduplanner:"
	}
	return &redisStore{log: log.With("service", "RedisKVStore"), rdb: rdb, prefix: prefix}
}

func (s *redisStore) k(key string) string { return s.prefix + key }

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	v, err := s.rdb.Get(ctx, s.k(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, s.k(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.k(key)).Err()
}

func (s *redisStore) Take(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	v, err := s.rdb.GetDel(ctx, s.k(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis getdel %s: %w", key, err)
	}
	return v, true, nil
}

func (s *redisStore) AppendUnique(ctx context.Context, listKey, itemID, value string) (bool, error) {
	if listKey == "" || itemID == "" {
		return false, ErrEmptyKey
	}
	keys := []string{s.k(listKey) + ":ids", s.k(listKey)}
	added, err := appendUniqueScript.Run(ctx, s.rdb, keys, itemID, value).Int()
	if err != nil {
		return false, fmt.Errorf("redis append %s: %w", listKey, err)
	}
	return added == 1, nil
}

func (s *redisStore) List(ctx context.Context, listKey string) ([]string, error) {
	vals, err := s.rdb.LRange(ctx, s.k(listKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", listKey, err)
	}
	if vals == nil {
		vals = []string{}
	}
	return vals, nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }
