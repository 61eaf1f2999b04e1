package llm

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	mutex          sync.Mutex
	now            func() time.Time
}

// NewTokenBucket 按每分钟请求数创建令牌桶；capacity<=0 时取 QPM 的一半
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if qpm <= 0 {
		qpm = 30
	}
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	return &TokenBucket{
		rate:           float64(qpm) / 60.0,
		capacity:       float64(capacity),
		tokens:         float64(capacity), // 初始填满
		lastRefillTime: time.Now(),
		now:            time.Now,
	}
}

// refill 根据经过的时间补充令牌，调用方持有锁
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 非阻塞地尝试取一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到拿到令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}
		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ThrottledChatModel 在调用模型前先等令牌
// 只限流，不重试：一次失败的生成就是一次失败的问答
type ThrottledChatModel struct {
	inner   model.BaseChatModel
	limiter *TokenBucket
}

// NewThrottledChatModel 包装一个模型，qpm<=0 时使用默认 30
func NewThrottledChatModel(inner model.BaseChatModel, qpm int) *ThrottledChatModel {
	return &ThrottledChatModel{
		inner:   inner,
		limiter: NewTokenBucket(qpm, 0),
	}
}

// Generate 实现 model.BaseChatModel 接口
func (t *ThrottledChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Generate(ctx, messages, opts...)
}

// Stream 实现 model.BaseChatModel 接口
func (t *ThrottledChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Stream(ctx, messages, opts...)
}

var _ model.BaseChatModel = (*ThrottledChatModel)(nil)
