package constants

import "time"

const (
	// ServiceName 服务名，用于日志和追踪
	ServiceName = "digital-twin"
	// Version 当前版本
	Version = "0.1.0"

	// DefaultSessionTTL 会话问答记录默认保存时长
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultMaxSessions 未配置 Redis 时内存中最多保留的会话数
	DefaultMaxSessions = 10000
	// DefaultHistoryLimit 查询会话记录时默认返回的条数
	DefaultHistoryLimit = 20
	// MaxHistoryLimit 单次查询会话记录的上限
	MaxHistoryLimit = 100

	// EventAnswerCompleted 一次问答完成后发布的事件类型
	EventAnswerCompleted = "answer.completed"
)
