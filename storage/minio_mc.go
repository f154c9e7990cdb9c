package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByKind       map[string]int64 // bytes per kind, see inferKind
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// List returns every object under prefix together with aggregate stats.
func (s *Store) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	var objects []ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	return objects, Summarize(objects), nil
}

// Summarize aggregates object sizes.
func Summarize(objects []ObjectInfo) *BucketStats {
	stats := &BucketStats{ByKind: make(map[string]int64)}
	for _, obj := range objects {
		stats.TotalObjects++
		stats.TotalSize += obj.Size
		if obj.LastModified.After(stats.LastModified) {
			stats.LastModified = obj.LastModified
		}
		stats.ByKind[inferKind(obj.Key)] += obj.Size
	}
	return stats
}

// DeletePrefix removes every object under prefix and returns how many were deleted.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("删除操作需要指定目录前缀")
	}

	objects, _, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		objectsCh <- minio.ObjectInfo{Key: obj.Key}
	}
	close(objectsCh)

	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("删除对象 %s 失败: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return len(objects), nil
}

// PrintListing writes a grouped listing: one block per synthesis hash
// directory, then loose files.
func PrintListing(w io.Writer, bucket, prefix string, objects []ObjectInfo, stats *BucketStats) {
	fmt.Fprintf(w, "存储桶: %s\n", bucket)
	fmt.Fprintf(w, "前缀: %s\n", prefix)
	fmt.Fprintf(w, "对象数量: %d\n", stats.TotalObjects)
	fmt.Fprintf(w, "总大小: %s\n", FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(w, "最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	dirs := make(map[string][]ObjectInfo)
	var loose []ObjectInfo
	for _, obj := range objects {
		dir := path.Dir(obj.Key)
		if dir == "." {
			loose = append(loose, obj)
			continue
		}
		dirs[dir] = append(dirs[dir], obj)
	}

	names := make([]string, 0, len(dirs))
	for dir := range dirs {
		names = append(names, dir)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	for _, dir := range names {
		fmt.Fprintf(w, "📁 %s/\n", dir)
		for _, obj := range dirs[dir] {
			fmt.Fprintf(w, "  📄 %s (%s)\n", path.Base(obj.Key), FormatSize(obj.Size))
		}
	}
	for _, obj := range loose {
		fmt.Fprintf(w, "📄 %s (%s)\n", obj.Key, FormatSize(obj.Size))
	}
}

// PrintStats writes the per-kind breakdown.
func PrintStats(w io.Writer, stats *BucketStats) {
	kinds := make([]string, 0, len(stats.ByKind))
	for kind := range stats.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	fmt.Fprintf(w, "\n=== 存储桶统计信息 ===\n")
	fmt.Fprintf(w, "对象总数: %d\n", stats.TotalObjects)
	fmt.Fprintf(w, "总大小: %s\n", FormatSize(stats.TotalSize))
	for _, kind := range kinds {
		fmt.Fprintf(w, "%s: %s\n", kind, FormatSize(stats.ByKind[kind]))
	}
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// inferKind 从文件名推断类别
func inferKind(key string) string {
	name := strings.ToLower(key)
	switch {
	case strings.HasSuffix(name, ".sentences.json"), strings.HasSuffix(name, ".sentence.json"):
		return "sentences"
	case strings.HasSuffix(name, ".zip"):
		return "archive"
	case strings.HasSuffix(name, ".mp3"), strings.HasSuffix(name, ".wav"):
		return "audio"
	case strings.HasSuffix(name, ".css"):
		return "stylesheet"
	default:
		return "other"
	}
}
