package profile

import (
	"context"
	_ "embed"
	"sync"

	"digital-twin-go/internal/types"
)

//go:embed default_profile.json
var defaultProfileJSON []byte

var (
	defaultOnce   sync.Once
	defaultRecord *types.ProfileRecord
	defaultErr    error
)

// Default 返回内嵌的默认档案，只解析一次
func Default() (*types.ProfileRecord, error) {
	defaultOnce.Do(func() {
		defaultRecord, defaultErr = Decode(defaultProfileJSON)
	})
	return defaultRecord, defaultErr
}

// EmbeddedSource 使用编译进二进制的默认档案
type EmbeddedSource struct{}

// NewEmbeddedSource 创建内嵌档案来源
func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{}
}

// Load 实现 Source 接口
func (s *EmbeddedSource) Load(_ context.Context) (*types.ProfileRecord, error) {
	return Default()
}

// Name 实现 Source 接口
func (s *EmbeddedSource) Name() string { return KindEmbedded }
