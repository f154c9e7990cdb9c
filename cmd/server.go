package cmd

import (
	"homereader/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 homereader 服务",
	Long:  `启动 HTTP 服务，提供仪表盘、书签阅读和朗读功能`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
