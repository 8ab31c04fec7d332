package feed

import (
	"context"
	"fmt"
	"path/filepath"

	"listenboard/logger"

	"github.com/fsnotify/fsnotify"
)

// Notifier is implemented by sources that can announce a new document
// between polls.
type Notifier interface {
	Updates(ctx context.Context) <-chan struct{}
}

// FileWatcher signals when the feed file is written or replaced.
// The parent directory is watched because the collector replaces the file
// with a rename, which drops a watch on the file itself.
type FileWatcher struct {
	path string
}

// NewFileWatcher 创建文件变更监听
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: path}
}

// Updates starts watching and returns a coalescing signal channel.
// The channel is closed when ctx ends or the watcher fails to start.
func (w *FileWatcher) Updates(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)

	watcher, err := w.start()
	if err != nil {
		logger.Warn("feed file watch disabled", logger.ErrorField(err), logger.String("path", w.path))
		close(out)
		return out
	}

	target := filepath.Clean(w.path)
	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("feed watcher error", logger.ErrorField(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (w *FileWatcher) start() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	return watcher, nil
}
