package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9" // 添加Redis OpenTelemetry钩子包
	"github.com/redis/go-redis/v9"

	"digital-twin-go/internal/config"
)

// Redis 问答记录使用的 Redis 客户端
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建 Redis 客户端并检查连通性
func NewRedisAdapter(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize, // 0 时使用 go-redis 默认值
	}
	if cfg.DialTimeoutSeconds > 0 {
		opt.DialTimeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	}

	return newRedis(ctx, redis.NewClient(opt), cfg)
}

// NewRedisFromClient 包装一个已创建的客户端，测试里配合 miniredis 使用
func NewRedisFromClient(ctx context.Context, client *redis.Client, cfg *config.RedisConfig) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	return newRedis(ctx, client, cfg)
}

func newRedis(ctx context.Context, client *redis.Client, cfg *config.RedisConfig) (*Redis, error) {
	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// KeyPrefix 会话记录键前缀
func (r *Redis) KeyPrefix() string {
	if r.config == nil {
		return ""
	}
	return r.config.KeyPrefix
}
