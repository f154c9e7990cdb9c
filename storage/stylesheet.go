package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"homereader/logger"

	"github.com/fsnotify/fsnotify"
)

// StylesheetKey is the object served at /css.
const StylesheetKey = "custom.css"

// stylesheetSettle 编辑器保存时会连续触发多个事件，等文件稳定后再上传
const stylesheetSettle = 200 * time.Millisecond

// Putter is the subset of Store needed to publish the stylesheet.
type Putter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// UploadStylesheet reads the file at path and stores it under StylesheetKey.
func UploadStylesheet(ctx context.Context, store Putter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取样式表失败: %w", err)
	}
	if err := store.Put(ctx, StylesheetKey, data, "text/css; charset=utf-8"); err != nil {
		return err
	}
	logger.Info("[storage/stylesheet] 样式表已上传",
		logger.String("path", path),
		logger.Int("bytes", len(data)))
	return nil
}

// WatchStylesheet uploads the file once, then again after every change until
// ctx is cancelled. The parent directory is watched so that editors which
// save by rename are picked up.
func WatchStylesheet(ctx context.Context, store Putter, path string) error {
	if err := UploadStylesheet(ctx, store, path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	var changedAt time.Time
	ticker := time.NewTicker(stylesheetSettle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				changedAt = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("[storage/stylesheet] 文件监听出错", logger.ErrorField(err))

		case <-ticker.C:
			if changedAt.IsZero() || time.Since(changedAt) < stylesheetSettle {
				continue
			}
			changedAt = time.Time{}
			if err := UploadStylesheet(ctx, store, abs); err != nil {
				// 文件可能正被替换，下次变更时重试
				logger.Warn("[storage/stylesheet] 上传样式表失败", logger.ErrorField(err))
			}
		}
	}
}
