package cmd

import (
	"fmt"
	"log"
	"time"

	"BeatStudio/config"
	"BeatStudio/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioRecursive bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看MinIO存储桶中的文件和统计信息，支持按前缀过滤。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		// 加载配置
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		objects, stats, err := storage.ListBucketObjects(minioPrefix, minioRecursive)
		if err != nil {
			log.Fatalf("列出对象失败: %v", err)
		}

		fmt.Printf("\n存储桶信息:\n")
		fmt.Printf("名称: %s\n", cfg.MinioBucket)
		fmt.Printf("对象数量: %d\n", stats.TotalObjects)
		fmt.Printf("总大小: %.2f MB\n", float64(stats.TotalSize)/1024/1024)
		if !stats.LastModified.IsZero() {
			fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
		}

		fmt.Println("\n文件列表:")
		for _, object := range objects {
			fmt.Printf("文件名: %s, 大小: %.2f MB, 最后修改时间: %s\n",
				object.Key,
				float64(object.Size)/1024/1024,
				object.LastModified.Format(time.RFC3339))
		}
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤对象")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", true, "递归列出所有对象")
	rootCmd.AddCommand(minioCmd)
}
