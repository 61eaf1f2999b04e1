// Package synthesizer 根据检索到的证据构造提示词并调用生成服务
package synthesizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"digital-twin-go/internal/logger"
)

const (
	// DefaultTemperature 默认采样温度
	DefaultTemperature float32 = 0.7
	// DefaultMaxTokens 默认最大输出长度
	DefaultMaxTokens = 200
)

var (
	// ErrEmptyCompletion 模型返回空内容，或清洗后为空
	ErrEmptyCompletion = errors.New("unable to generate response")
	// ErrNilModel 未提供模型
	ErrNilModel = errors.New("synthesizer requires a chat model")
)

// Synthesizer 一次调用对应一次生成请求，不重试
type Synthesizer struct {
	model       model.BaseChatModel
	temperature float32
	maxTokens   int
}

// Option 构造选项
type Option func(*Synthesizer)

// WithTemperature 覆盖采样温度，0 表示确定性采样，负数忽略
func WithTemperature(t float32) Option {
	return func(s *Synthesizer) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithMaxTokens 覆盖最大输出 token
func WithMaxTokens(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// New 创建合成器
func New(m model.BaseChatModel, opts ...Option) (*Synthesizer, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	s := &Synthesizer{
		model:       m,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Synthesize 生成第一人称的回答并清洗输出
func (s *Synthesizer) Synthesize(ctx context.Context, persona Persona, question, evidenceContext string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(SystemPrompt(persona)),
		schema.UserMessage(UserPrompt(persona, question, evidenceContext)),
	}

	resp, err := s.model.Generate(ctx, messages,
		model.WithTemperature(s.temperature),
		model.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("调用生成服务失败: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyCompletion
	}

	answer := Sanitize(resp.Content)
	if answer == "" {
		logger.Ctx(ctx).Warn().Int("raw_length", len(resp.Content)).Msg("模型返回内容清洗后为空")
		return "", ErrEmptyCompletion
	}
	return answer, nil
}
