package cmd

import (
	"BeatStudio/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动BeatStudio服务器",
	Long:  `启动录音棚平台的HTTP服务器，提供节拍商城、录音服务和支付API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
