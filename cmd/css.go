package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"homereader/storage"

	"github.com/spf13/cobra"
)

var cssWatch bool

var cssCmd = &cobra.Command{
	Use:   "css <file>",
	Short: "上传自定义样式表",
	Long:  `将本地 CSS 文件上传到对象存储，页面通过 /css 加载。使用 --watch 在文件变更时自动重新上传。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := storage.NewStore(ctx, cfg)
		if err != nil {
			return err
		}

		if !cssWatch {
			if err := storage.UploadStylesheet(ctx, store, args[0]); err != nil {
				return err
			}
			fmt.Printf("已上传 %s 到 %s/%s\n", args[0], store.Bucket(), storage.StylesheetKey)
			return nil
		}

		fmt.Printf("正在监听 %s，按 Ctrl+C 退出\n", args[0])
		return storage.WatchStylesheet(ctx, store, args[0])
	},
}

func init() {
	rootCmd.AddCommand(cssCmd)
	cssCmd.Flags().BoolVarP(&cssWatch, "watch", "w", false, "文件变更时自动重新上传")
}
