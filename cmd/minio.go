package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"listenboard/feed"
	"listenboard/storage"

	"github.com/spf13/cobra"
)

var minioUpload string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO数据文档管理",
	Long:  `检查 MinIO 中的数据文档对象；使用 --upload 可把本地 JSON 文档上传为该对象。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MinIO配置: %s, Bucket: %s, Object: %s\n", cfg.MinioEndpoint, cfg.MinioBucket, cfg.MinioFeedObject)

		if !cfg.MinioConfigured() {
			return fmt.Errorf("MINIO_ENDPOINT is not set")
		}
		if err := storage.InitMinio(cfg); err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}
		object := storage.NewFeedObject(storage.GetMinioClient(), cfg.MinioBucket, cfg.MinioFeedObject)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if minioUpload != "" {
			data, err := os.ReadFile(minioUpload)
			if err != nil {
				return err
			}
			// 上传前校验文档格式
			if _, err := feed.Decode(data); err != nil {
				return err
			}
			if err := object.Put(ctx, data); err != nil {
				return err
			}
			fmt.Fprintf(out, "已上传 %s (%d 字节)\n", minioUpload, len(data))
		}

		info, err := object.Stat(ctx)
		if errors.Is(err, storage.ErrObjectMissing) {
			fmt.Fprintln(out, "对象不存在（运行 listenboard collect）")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "大小: %d 字节, 修改时间: %s, ETag: %s\n", info.Size, info.LastModified.Format(time.RFC3339), info.ETag)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioUpload, "upload", "u", "", "上传本地数据文档")

	minioCmd.Example = `  # 查看数据文档对象
  listenboard minio

  # 上传本地文档
  listenboard minio -u data/data.json`
}
