// Package transcript 保存每个会话的问答记录
package transcript

import (
	"context"
	"errors"
	"time"


	"digital-twin-go/internal/types"
)

// ErrEmptySession 会话ID为空
var ErrEmptySession = errors.New("session id is required")

// Exchange 一次问答
type Exchange struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	RequestID string         `json:"request_id,omitempty"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Outcome   types.Outcome  `json:"outcome"`
	Sources   []types.Source `json:"sources"`
	CreatedAt time.Time      `json:"created_at"`
	LatencyMS int64          `json:"latency_ms"`
}

// Store 定义了问答记录存储的接口
type Store interface {
	// Append 追加一条记录
	Append(ctx context.Context, e Exchange) error

	// History 按时间顺序返回最近 limit 条记录，limit<=0 表示全部。
	// 会话不存在时返回空切片和 nil 错误。
	History(ctx context.Context, sessionID string, limit int) ([]Exchange, error)

	// Clear 清除会话的所有记录，会话不存在时静默成功
	Clear(ctx context.Context, sessionID string) error
}

// tail 返回最后 limit 个元素
func tail(list []Exchange, limit int) []Exchange {
	if limit <= 0 || limit >= len(list) {
		return list
	}
	return list[len(list)-limit:]
}
