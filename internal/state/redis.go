package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"allsidestg/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one key per published URL. Durability follows the
// server's persistence settings; run it with appendfsync always.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		_ = rdb.Close()

		return nil, durability("ping redis "+cfg.Addr, err)
	}

	if pong != "PONG" {
		_ = rdb.Close()

		return nil, durability("ping redis "+cfg.Addr, fmt.Errorf("expected PONG, got %s", pong))
	}

	return NewRedisStore(rdb, cfg.Prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(url string) string {
	return s.prefix + "published:" + url
}

// IsPublished implements Store.
func (s *RedisStore) IsPublished(ctx context.Context, url string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(url)).Result()
	if err != nil {
		return false, durability("read "+url, err)
	}

	return n > 0, nil
}

// MarkPublished implements Store.
func (s *RedisStore) MarkPublished(ctx context.Context, url string) error {
	_, err := s.TryMark(ctx, url)

	return err
}

// TryMark implements Store.
func (s *RedisStore) TryMark(ctx context.Context, url string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.key(url), stamp(), 0).Result()
	if err != nil {
		return false, durability("mark "+url, err)
	}

	return ok, nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	var out []Record

	prefix := s.key("")
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		k := iter.Val()

		v, err := s.rdb.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			return nil, durability("list", err)
		}

		out = append(out, Record{URL: strings.TrimPrefix(k, prefix), PublishedAt: parseStamp(v)})
	}

	if err := iter.Err(); err != nil {
		return nil, durability("list", err)
	}

	return out, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if err := s.rdb.Close(); err != nil {
		return durability("close redis", err)
	}

	return nil
}
