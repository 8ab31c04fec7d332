package cmd

import (
	"listenboard/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动仪表盘服务器",
	Long:  `启动 HTTP 服务器：渲染仪表盘页面，通过 WebSocket 推送面板与进度条更新`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
