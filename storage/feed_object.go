package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
)

// ErrObjectMissing 对象不存在
var ErrObjectMissing = errors.New("feed object not found")

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// FeedObject reads and writes the feed document as a single object.
type FeedObject struct {
	client *minio.Client
	bucket string
	key    string
}

// NewFeedObject 创建数据文档对象封装
func NewFeedObject(client *minio.Client, bucket, key string) *FeedObject {
	return &FeedObject{client: client, bucket: bucket, key: key}
}

// Put 上传文档
func (o *FeedObject) Put(ctx context.Context, doc []byte) error {
	if o.client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	opts := minio.PutObjectOptions{
		ContentType:      "application/json",
		CacheControl:     "no-cache",
		DisableMultipart: true,
	}
	if _, err := o.client.PutObject(ctx, o.bucket, o.key, bytes.NewReader(doc), int64(len(doc)), opts); err != nil {
		return fmt.Errorf("upload feed object: %w", err)
	}
	return nil
}

// Get 下载文档
func (o *FeedObject) Get(ctx context.Context) ([]byte, error) {
	if o.client == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}

	object, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get feed object: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectMissing
		}
		return nil, fmt.Errorf("read feed object: %w", err)
	}
	return data, nil
}

// Stat 查看对象元信息
func (o *FeedObject) Stat(ctx context.Context) (ObjectInfo, error) {
	if o.client == nil {
		return ObjectInfo{}, fmt.Errorf("MinIO client not initialized")
	}

	info, err := o.client.StatObject(ctx, o.bucket, o.key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return ObjectInfo{}, ErrObjectMissing
		}
		return ObjectInfo{}, fmt.Errorf("stat feed object: %w", err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
