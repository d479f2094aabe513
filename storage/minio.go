package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"BeatStudio/config"
	"BeatStudio/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Object key prefixes inside the bucket.
const (
	BeatAudioPrefix = "beats/audio/"
	BeatCoverPrefix = "beats/covers/"
	NewsCoverPrefix = "news/covers/"
	DeliveredPrefix = "delivered/"
)

var (
	minioClient *minio.Client
	bucketName  string
)

// InitMinio 初始化 MinIO 客户端并确保存储桶存在
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	bucketName = cfg.MinioBucket
	logger.Info("MinIO client initialized",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadObject streams a file into the bucket and returns its object key.
func UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("minio client not initialized")
	}
	_, err := minioClient.PutObject(ctx, bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}
	return objectName, nil
}

// GetObject opens an object for reading. The caller must Close it.
func GetObject(ctx context.Context, objectName string) (*minio.Object, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("minio client not initialized")
	}
	obj, err := minioClient.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectName, err)
	}
	return obj, nil
}

// StatObject returns object metadata, mainly size and content type.
func StatObject(ctx context.Context, objectName string) (minio.ObjectInfo, error) {
	if minioClient == nil {
		return minio.ObjectInfo{}, fmt.Errorf("minio client not initialized")
	}
	info, err := minioClient.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		return minio.ObjectInfo{}, fmt.Errorf("failed to stat object %s: %w", objectName, err)
	}
	return info, nil
}

// RemoveObject deletes an object from the bucket.
func RemoveObject(ctx context.Context, objectName string) error {
	if minioClient == nil {
		return fmt.Errorf("minio client not initialized")
	}
	if err := minioClient.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", objectName, err)
	}
	return nil
}

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ListBucketObjects walks the bucket under a prefix and aggregates stats.
// Used by the minio inspection command.
func ListBucketObjects(prefix string, recursive bool) ([]minio.ObjectInfo, *BucketStats, error) {
	if minioClient == nil {
		return nil, nil, fmt.Errorf("minio client not initialized")
	}

	ctx := context.Background()
	stats := &BucketStats{}
	var objects []minio.ObjectInfo

	objectCh := minioClient.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		objects = append(objects, object)
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
	}
	return objects, stats, nil
}
