package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	gocache "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristrettostore "github.com/eko/gocache/store/ristretto/v4"
	"github.com/redis/go-redis/v9"
)

// PageStore holds rendered page bodies under string keys with a TTL.
type PageStore interface {
	// Get returns the body stored under key; ok is false on a miss.
	Get(ctx context.Context, key string) (body []byte, ok bool, err error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	// Clear drops every entry whose key starts with prefix.
	Clear(ctx context.Context, prefix string) error
}

// RedisPageStore keeps pages in Redis so that every server process shares them.
type RedisPageStore struct {
	rdb *redis.Client
}

// NewRedisPageStore returns a PageStore backed by rdb.
func NewRedisPageStore(rdb *redis.Client) *RedisPageStore {
	return &RedisPageStore{rdb: rdb}
}

func (s *RedisPageStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (s *RedisPageStore) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, body, ttl).Err()
}

func (s *RedisPageStore) Clear(ctx context.Context, prefix string) error {
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	for start := 0; start < len(keys); start += 100 {
		end := min(start+100, len(keys))
		if err := s.rdb.Del(ctx, keys[start:end]...).Err(); err != nil {
			return err
		}
	}
	return nil
}

// LocalPageStore keeps pages in process memory (ristretto via gocache).
// It is used when Redis is unavailable.
type LocalPageStore struct {
	cache *gocache.Cache[[]byte]
	rc    *ristretto.Cache
}

// NewLocalPageStore returns an in-memory PageStore holding at most maxBytes of page bodies.
func NewLocalPageStore(maxBytes int64) (*LocalPageStore, error) {
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create local page cache: %w", err)
	}
	return &LocalPageStore{
		cache: gocache.New[[]byte](ristrettostore.NewRistretto(rc)),
		rc:    rc,
	}, nil
}

// Get treats every lookup failure as a miss; the ristretto store only fails on absent keys.
func (s *LocalPageStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := s.cache.Get(ctx, key)
	if err != nil || body == nil {
		return nil, false, nil
	}
	return body, true, nil
}

func (s *LocalPageStore) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	err := s.cache.Set(ctx, key, body,
		store.WithExpiration(ttl),
		store.WithCost(int64(len(body))),
	)
	if err != nil {
		return err
	}
	// ristretto applies writes asynchronously; wait so the next Get sees this one.
	s.rc.Wait()
	return nil
}

// Clear empties the whole local store; it only ever holds rendered pages.
func (s *LocalPageStore) Clear(ctx context.Context, _ string) error {
	return s.cache.Clear(ctx)
}

// NewPageStore picks Redis when a client is available and process memory otherwise.
func NewPageStore(rdb *redis.Client) (PageStore, error) {
	if rdb != nil {
		return NewRedisPageStore(rdb), nil
	}
	return NewLocalPageStore(64 << 20)
}
