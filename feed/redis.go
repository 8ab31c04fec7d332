package feed

import (
	"context"

	"listenboard/cache"
	"listenboard/model"
)

// RedisSource reads the feed from the key the collector writes.
type RedisSource struct {
	cache *cache.FeedCache
}

// NewRedisSource 创建 Redis 数据源
func NewRedisSource(c *cache.FeedCache) *RedisSource {
	return &RedisSource{cache: c}
}

func (s *RedisSource) Fetch(ctx context.Context) (*model.Feed, error) {
	data, err := s.cache.Get(ctx)
	if err != nil {
		return nil, unavailable("redis get", err)
	}
	return Decode(data)
}

func (s *RedisSource) Describe() string {
	return "redis:" + s.cache.Key()
}

// Updates signals each time the collector stores a new document.
func (s *RedisSource) Updates(ctx context.Context) <-chan struct{} {
	return s.cache.Updates(ctx)
}
