package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"listenboard/cache"
	"listenboard/storage"
)

// Sink stores one encoded feed document.
type Sink interface {
	Write(ctx context.Context, doc []byte) error
	Name() string
}

// FileSink writes the document to a local path via rename, so readers never
// see a partial file.
type FileSink struct {
	path string
}

// NewFileSink 创建文件输出
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file:" + s.path }

func (s *FileSink) Write(_ context.Context, doc []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".feed-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// RedisSink 写入 Redis 并发布更新通知
type RedisSink struct {
	cache *cache.FeedCache
}

func NewRedisSink(c *cache.FeedCache) *RedisSink {
	return &RedisSink{cache: c}
}

func (s *RedisSink) Name() string { return "redis:" + s.cache.Key() }

func (s *RedisSink) Write(ctx context.Context, doc []byte) error {
	return s.cache.Put(ctx, doc)
}

// MinioSink 写入 MinIO 对象
type MinioSink struct {
	object *storage.FeedObject
	name   string
}

func NewMinioSink(object *storage.FeedObject, name string) *MinioSink {
	return &MinioSink{object: object, name: name}
}

func (s *MinioSink) Name() string { return "minio:" + s.name }

func (s *MinioSink) Write(ctx context.Context, doc []byte) error {
	return s.object.Put(ctx, doc)
}
