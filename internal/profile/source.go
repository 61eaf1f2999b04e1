// Package profile 提供数字分身档案的加载来源：内嵌、本地文件、MinIO 对象存储
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"digital-twin-go/internal/types"
)

// 来源类型
const (
	KindEmbedded = "embedded"
	KindFile     = "file"
	KindMinIO    = "minio"
)

var (
	// ErrEmptyDocument 档案文档为空
	ErrEmptyDocument = errors.New("profile document is empty")
	// ErrUnknownSource 未知的档案来源类型
	ErrUnknownSource = errors.New("unknown profile source")
)

// Source 档案来源，每次问答都会调用一次 Load
type Source interface {
	Load(ctx context.Context) (*types.ProfileRecord, error)
	Name() string
}

// Decode 解析 JSON 档案文档
func Decode(data []byte) (*types.ProfileRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	var record types.ProfileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("解析档案JSON失败: %w", err)
	}
	return &record, nil
}

// StaticSource 直接返回内存中的档案，主要用于测试和内嵌默认档案
type StaticSource struct {
	record *types.ProfileRecord
}

// NewStaticSource 创建静态档案来源
func NewStaticSource(record *types.ProfileRecord) *StaticSource {
	return &StaticSource{record: record}
}

// Load 实现 Source 接口
func (s *StaticSource) Load(_ context.Context) (*types.ProfileRecord, error) {
	if s.record == nil {
		return nil, ErrEmptyDocument
	}
	return s.record, nil
}

// Name 实现 Source 接口
func (s *StaticSource) Name() string { return "static" }
