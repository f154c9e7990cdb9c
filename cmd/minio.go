package cmd

import (
	"context"
	"fmt"
	"os"

	"homereader/core/speech"
	"homereader/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "对象存储管理",
	Long:  `查看和清理对象存储中的合成结果和样式表，支持列出文件、查看统计信息、删除目录等功能。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		fmt.Printf("对象存储配置: %s, Bucket: %s\n", cfg.StorageEndpoint, cfg.StorageBucket)

		store, err := storage.NewStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到对象存储: %w", err)
		}

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定目录前缀")
			}
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return fmt.Errorf("删除目录失败: %w", err)
			}
			fmt.Printf("已删除 %d 个对象 (前缀: %s)\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := store.List(ctx, minioPrefix)
		if err != nil {
			return fmt.Errorf("列出文件失败: %w", err)
		}
		if minioStats {
			storage.PrintStats(os.Stdout, stats)
			return nil
		}
		storage.PrintListing(os.Stdout, store.Bucket(), minioPrefix, objects, stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", speech.OutputPrefix(), "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")

	minioCmd.Example = `  # 列出所有合成结果
  homereader minio

  # 列出整个存储桶
  homereader minio -p ""

  # 显示统计信息
  homereader minio -s

  # 清空合成结果，下次朗读时会重新合成
  homereader minio -d -p "tts-output/"`
}
