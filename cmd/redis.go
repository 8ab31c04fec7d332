package cmd

import (
	"context"
	"fmt"
	"time"

	"listenboard/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，进行读写探测，并显示数据文档键的大小。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis配置: %s:%s, DB: %d, key: %s\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB, cfg.RedisFeedKey)

		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer cache.CloseRedis()
		fmt.Fprintln(out, "Redis连接成功！")

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		size, err := cache.CheckFeedKey(ctx, cache.RedisClient, cfg.RedisFeedKey)
		if err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		if size == 0 {
			fmt.Fprintf(out, "读写测试成功，但 %s 尚无数据（运行 listenboard collect）\n", cfg.RedisFeedKey)
			return nil
		}
		fmt.Fprintf(out, "读写测试成功，%s 大小 %d 字节\n", cfg.RedisFeedKey, size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
