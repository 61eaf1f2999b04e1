// Package storage 聚合外部存储依赖：Redis 问答记录、MinIO 档案对象、RabbitMQ 事件
package storage

import (
	"context"
	"fmt"
	"strings"

	"digital-twin-go/internal/config"
	"digital-twin-go/internal/logger"
)

// Storage 存储管理器，每个组件都是可选的，未配置时为 nil
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 键值存储
	Redis *Redis
}

// NewStorage 按配置初始化各个组件
// 配置了但连接失败的组件会返回错误，调用方决定是否降级
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var initErrors []string

	if cfg.Profile.Source == "minio" {
		m, err := NewMinIO(&cfg.Profile.MinIO)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		} else {
			s.MinIO = m
		}
	}

	if cfg.Redis.Address != "" {
		logger.Info().Str("address", cfg.Redis.Address).Msg("初始化Redis")
		r, err := NewRedisAdapter(ctx, &cfg.Redis)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		} else {
			s.Redis = r
		}
	} else {
		logger.Debug().Msg("Redis未配置, 跳过初始化")
	}

	if cfg.RabbitMQ.URL != "" {
		mq, err := NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else {
			s.RabbitMQ = mq
		}
	}

	if len(initErrors) > 0 {
		return s, fmt.Errorf("以下存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s == nil {
		return
	}
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	// MinIO 客户端基于 HTTP，无需显式关闭
}
