package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"listenboard/cache"
	"listenboard/collector"
	"listenboard/logger"
	"listenboard/storage"

	"github.com/spf13/cobra"
)

var (
	collectOnce    bool
	collectNoFile  bool
	collectBaseURL string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "采集 Spotify 收听数据",
	Long: `定时从 Spotify Web API 拉取当前播放与最近播放（默认每 10 秒），
常听歌曲与艺术家每 12 小时刷新一次，结果写入所有已配置的输出：本地文件、Redis、MinIO。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		oc := collector.OAuthConfig(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI)
		httpClient, err := collector.HTTPClient(ctx, oc, cfg.SpotifyRefreshToken)
		if err != nil {
			return err
		}
		api := collector.NewClient(httpClient, collectBaseURL, cfg.SpotifyMaxRetries, cfg.SpotifyBackoff)

		var sinks []collector.Sink
		if !collectNoFile {
			sinks = append(sinks, collector.NewFileSink(cfg.FeedPath))
		}
		if cfg.RedisConfigured() {
			if err := cache.ConnectRedis(cfg); err != nil {
				return err
			}
			defer cache.CloseRedis()
			sinks = append(sinks, collector.NewRedisSink(cache.NewFeedCache(cache.RedisClient, cfg.RedisFeedKey)))
		}
		if cfg.MinioConfigured() {
			if err := storage.InitMinio(cfg); err != nil {
				return err
			}
			object := storage.NewFeedObject(storage.GetMinioClient(), cfg.MinioBucket, cfg.MinioFeedObject)
			sinks = append(sinks, collector.NewMinioSink(object, cfg.MinioBucket+"/"+cfg.MinioFeedObject))
		}
		if len(sinks) == 0 {
			return fmt.Errorf("no output configured: enable the file sink or set REDIS_HOST / MINIO_ENDPOINT")
		}

		c, err := collector.New(collector.Options{
			API:           api,
			Sinks:         sinks,
			Interval:      cfg.CollectInterval,
			StatsInterval: cfg.StatsInterval,
			RecentLimit:   cfg.RecentLimit,
			TopLimit:      cfg.TopLimit,
		})
		if err != nil {
			return err
		}

		if collectOnce {
			if err := c.RunOnce(ctx); err != nil {
				return err
			}
			logger.Info("feed written", logger.String("timestamp", c.Feed().Timestamp))
			return nil
		}
		return c.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().BoolVar(&collectOnce, "once", false, "只采集一轮后退出")
	collectCmd.Flags().BoolVar(&collectNoFile, "no-file", false, "不写本地文件 (FEED_PATH)")
	collectCmd.Flags().StringVar(&collectBaseURL, "api-url", collector.DefaultBaseURL, "Spotify Web API 地址")

	collectCmd.Example = `  # 持续采集
  listenboard collect

  # 采集一次，用于 cron
  listenboard collect --once`
}
