package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore adapts a Redis client to the Store interface.  Every error is
// swallowed after logging: the repositories remain the source of truth and
// a broken cache must never fail a request.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.  Callers should fall back to
// NewMemoryStore when the client could not be established.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return bs, true
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := s.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}

// DeletePrefix scans for every key under prefix and deletes them in
// batches.  SCAN is used instead of KEYS so a large keyspace does not
// block the server.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) {
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				log.Printf("cache: invalidate %s failed: %v", prefix, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: scan %s failed: %v", prefix, err)
	}
	if len(batch) > 0 {
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			log.Printf("cache: invalidate %s failed: %v", prefix, err)
		}
	}
}
