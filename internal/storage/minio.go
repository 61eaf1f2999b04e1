package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"digital-twin-go/internal/config"
	"digital-twin-go/internal/logger"
)

// MinIO 只读的对象存储客户端，用于拉取档案文档
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint 不能为空")
	}
	logger.Debug().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("初始化MinIO客户端")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}
	return &MinIO{client: client, cfg: cfg}, nil
}

// ReadObject 读取完整对象内容
func (m *MinIO) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucket, object, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 失败: %w", bucket, object, err)
	}
	return data, nil
}

// EnsureBucketExists 检查桶是否存在，不存在时返回错误
func (m *MinIO) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 失败: %w", bucket, err)
	}
	if !exists {
		return fmt.Errorf("存储桶 %s 不存在", bucket)
	}
	return nil
}

// Bucket 配置的档案桶
func (m *MinIO) Bucket() string { return m.cfg.Bucket }

// Object 配置的档案对象名
func (m *MinIO) Object() string { return m.cfg.Object }
