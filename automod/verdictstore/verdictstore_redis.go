package verdictstore

import (
	"context"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	data *cache.Cache
	ttl  time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, ttl),
	})
	return &RedisStore{
		data: data,
		ttl:  ttl,
	}, nil
}

func redisKey(uniqueID string) string {
	return "verdict/" + uniqueID
}

func (s *RedisStore) Get(ctx context.Context, uniqueID string) (*Verdict, error) {
	var v Verdict
	err := s.data.Get(ctx, redisKey(uniqueID), &v)
	if err == cache.ErrCacheMiss {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *RedisStore) Put(ctx context.Context, uniqueID string, v Verdict) error {
	if prev, err := s.Get(ctx, uniqueID); err == nil && prev != nil && prev.Flagged {
		return nil
	}
	return s.data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisKey(uniqueID),
		Value: v,
		TTL:   s.ttl,
	})
}

func (s *RedisStore) Flag(ctx context.Context, uniqueID string) error {
	// flags are permanent review decisions, no TTL
	return s.data.Set(&cache.Item{
		Ctx: ctx,
		Key: redisKey(uniqueID),
		Value: Verdict{
			ShouldDelete: true,
			Flagged:      true,
			CheckedAt:    time.Now(),
		},
	})
}
