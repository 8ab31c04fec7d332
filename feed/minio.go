package feed

import (
	"context"

	"listenboard/model"
	"listenboard/storage"
)

// MinioSource reads the feed from an object store.
type MinioSource struct {
	object *storage.FeedObject
	name   string
}

// NewMinioSource 创建对象存储数据源
func NewMinioSource(object *storage.FeedObject, name string) *MinioSource {
	return &MinioSource{object: object, name: name}
}

func (s *MinioSource) Fetch(ctx context.Context) (*model.Feed, error) {
	data, err := s.object.Get(ctx)
	if err != nil {
		return nil, unavailable("minio get", err)
	}
	return Decode(data)
}

func (s *MinioSource) Describe() string {
	return "minio:" + s.name
}
