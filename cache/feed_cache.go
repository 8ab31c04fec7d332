package cache

import (
	"context"
	"errors"
	"fmt"

	"listenboard/logger"

	"github.com/go-redis/redis/v8"
)

// ErrFeedMissing is returned when the feed key does not exist.
var ErrFeedMissing = errors.New("feed key not found")

// FeedCache stores the latest feed document under a single key and announces
// every write on a pub/sub channel named "<key>:updated".
type FeedCache struct {
	client *redis.Client
	key    string
}

// NewFeedCache 创建数据文档缓存
func NewFeedCache(client *redis.Client, key string) *FeedCache {
	return &FeedCache{client: client, key: key}
}

// Key 返回存储键
func (c *FeedCache) Key() string {
	return c.key
}

func (c *FeedCache) channel() string {
	return c.key + ":updated"
}

// Put 写入文档并发布更新通知
func (c *FeedCache) Put(ctx context.Context, doc []byte) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key, doc, 0)
	pipe.Publish(ctx, c.channel(), len(doc))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store feed: %w", err)
	}
	return nil
}

// Get 读取最新文档
func (c *FeedCache) Get(ctx context.Context) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrFeedMissing
		}
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	return data, nil
}

// Updates delivers a signal for every Put until ctx is cancelled.
// Signals are coalesced: a slow reader sees one pending signal, not a backlog.
func (c *FeedCache) Updates(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	if c.client == nil {
		close(out)
		return out
	}

	sub := c.client.Subscribe(ctx, c.channel())
	// 等待订阅确认，之后的 Put 不会丢失
	if _, err := sub.Receive(ctx); err != nil {
		logger.Warn("feed update subscription failed", logger.ErrorField(err), logger.String("key", c.key))
		_ = sub.Close()
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					logger.Warn("feed update subscription closed", logger.String("key", c.key))
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
