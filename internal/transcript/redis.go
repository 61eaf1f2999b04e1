package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"digital-twin-go/internal/constants"
	"digital-twin-go/internal/logger"
	"digital-twin-go/internal/tracing"
)

// RedisStore 实现了 Store 接口，每个会话一个 LIST
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration // 0 表示不过期
	maxEntries int           // 0 表示不裁剪
}

// NewRedisStore 创建 Redis 问答记录存储
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration, maxEntries int) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = constants.KeySessionPrefix
	}
	return &RedisStore{
		client:     client,
		keyPrefix:  keyPrefix,
		ttl:        ttl,
		maxEntries: maxEntries,
	}, nil
}

func (s *RedisStore) buildKey(sessionID string) string {
	return s.keyPrefix + sessionID
}

// startSpan 在调用方的 trace 下开一个子 span
func startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	ctx, span := tracing.Tracer(ctx, "digital-twin/transcript").Start(ctx, name)
	span.SetAttributes(attribute.String("redis.key", tracing.SafeRedisKey(key)))
	return ctx, span
}

// fail 记录 Redis 错误到 span 和日志
func fail(ctx context.Context, span trace.Span, key string, err error) error {
	tracing.RecordError(span, err, tracing.ErrorTypeRedis)
	logger.Ctx(ctx).Warn().Err(err).Str("key", tracing.SafeRedisKey(key)).Msg("问答记录读写Redis失败")
	return err
}

// Append 实现 Store 接口
func (s *RedisStore) Append(ctx context.Context, e Exchange) error {
	if e.SessionID == "" {
		return ErrEmptySession
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange for session %s: %w", e.SessionID, err)
	}

	key := s.buildKey(e.SessionID)
	ctx, span := startSpan(ctx, "transcript.Redis.Append", key)
	defer span.End()

	// 追加、裁剪、续期放在同一个事务里
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if s.maxEntries > 0 {
		pipe.LTrim(ctx, key, int64(-s.maxEntries), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fail(ctx, span, key, fmt.Errorf("failed to append exchange to redis for session %s: %w", e.SessionID, err))
	}
	return nil
}

// History 实现 Store 接口
func (s *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	key := s.buildKey(sessionID)
	ctx, span := startSpan(ctx, "transcript.Redis.History", key)
	defer span.End()

	raw, err := s.client.LRange(ctx, key, start, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []Exchange{}, nil
	}
	if err != nil {
		return nil, fail(ctx, span, key, fmt.Errorf("failed to read history from redis for session %s: %w", sessionID, err))
	}
	span.SetAttributes(attribute.Int("transcript.count", len(raw)))

	out := make([]Exchange, 0, len(raw))
	for _, item := range raw {
		var e Exchange
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fail(ctx, span, key, fmt.Errorf("failed to unmarshal exchange for session %s: %w", sessionID, err))
		}
		out = append(out, e)
	}
	return out, nil
}

// Clear 实现 Store 接口
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	key := s.buildKey(sessionID)
	ctx, span := startSpan(ctx, "transcript.Redis.Clear", key)
	defer span.End()

	// 键不存在时 Del 返回 0，err 为 nil
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fail(ctx, span, key, fmt.Errorf("failed to clear history from redis for session %s: %w", sessionID, err))
	}
	return nil
}
