package profile

import (
	"context"
	"fmt"
	"os"

	"digital-twin-go/internal/types"
)

// DefaultFilePath 本地档案文件的默认位置
const DefaultFilePath = "digitaltwin.json"

// FileSource 每次调用都重新读取本地 JSON 文件，文件修改后立刻生效
type FileSource struct {
	path string
}

// NewFileSource 创建文件档案来源
func NewFileSource(path string) *FileSource {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileSource{path: path}
}

// Load 实现 Source 接口
func (s *FileSource) Load(ctx context.Context) (*types.ProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("读取档案文件 %s 失败: %w", s.path, err)
	}
	return Decode(data)
}

// Name 实现 Source 接口
func (s *FileSource) Name() string { return KindFile + ":" + s.path }
