package feed

import (
	"context"
	"os"

	"listenboard/model"
)

// FileSource reads the feed from a local JSON file.
type FileSource struct {
	path string
}

// NewFileSource 创建本地文件数据源
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context) (*model.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("read "+s.path, err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, unavailable("read "+s.path, err)
	}
	return Decode(data)
}

func (s *FileSource) Describe() string {
	return "file:" + s.path
}

// Path 文件路径
func (s *FileSource) Path() string {
	return s.path
}
