package profile

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"digital-twin-go/internal/tracing"
	"digital-twin-go/internal/types"
)

// ObjectReader 读取对象存储中的完整对象
// storage.MinIO 实现了该接口
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// MinIOSource 从 MinIO 桶中读取档案 JSON
type MinIOSource struct {
	reader ObjectReader
	bucket string
	object string
}

// NewMinIOSource 创建 MinIO 档案来源
func NewMinIOSource(reader ObjectReader, bucket, object string) (*MinIOSource, error) {
	if reader == nil {
		return nil, fmt.Errorf("MinIO档案来源需要对象读取器")
	}
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("MinIO档案来源需要bucket和object, got bucket=%q object=%q", bucket, object)
	}
	return &MinIOSource{reader: reader, bucket: bucket, object: object}, nil
}

// Load 实现 Source 接口
func (s *MinIOSource) Load(ctx context.Context) (*types.ProfileRecord, error) {
	ctx, span := tracing.Tracer(ctx, "digital-twin/profile").Start(ctx, "profile.MinIO.Load")
	defer span.End()
	span.SetAttributes(
		attribute.String("minio.bucket", s.bucket),
		attribute.String("minio.object", s.object),
	)

	data, err := s.reader.ReadObject(ctx, s.bucket, s.object)
	if err != nil {
		err = fmt.Errorf("从MinIO读取档案 %s/%s 失败: %w", s.bucket, s.object, err)
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, err
	}
	record, err := Decode(data)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeProfile)
	}
	return record, err
}

// Name 实现 Source 接口
func (s *MinIOSource) Name() string { return KindMinIO + ":" + s.bucket + "/" + s.object }
