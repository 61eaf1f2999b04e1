// Package llm 提供 OpenAI 兼容的聊天模型客户端 (Groq)，以及限流代理和测试替身
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"digital-twin-go/internal/logger"
	"digital-twin-go/internal/tracing"
)

const (
	// DefaultGroqAPIURL Groq 的 OpenAI 兼容接口
	DefaultGroqAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultGroqModel 默认模型
	DefaultGroqModel = "llama-3.1-8b-instant"

	defaultHTTPTimeout = 30 * time.Second
)

var (
	// ErrMissingAPIKey 未配置 API 密钥
	ErrMissingAPIKey = errors.New("API 密钥不能为空")
	// ErrNoChoices 接口返回了空的 choices
	ErrNoChoices = errors.New("从 API 收到空选项")
	// ErrToolsUnsupported 该客户端不做工具调用
	ErrToolsUnsupported = errors.New("groq chat model does not bind tools")
)

// APIError 接口返回非 200 状态
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API 请求失败，状态 %d: %s", e.StatusCode, e.Body)
}

// GroqChatModel 实现 model.ToolCallingChatModel，对接 Groq 的 chat completions 接口
type GroqChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
}

// GroqOption 构造选项
type GroqOption func(*GroqChatModel)

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(c *http.Client) GroqOption {
	return func(g *GroqChatModel) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithTimeout 设置单次请求超时
func WithTimeout(d time.Duration) GroqOption {
	return func(g *GroqChatModel) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// NewGroqChatModel 创建 Groq 聊天模型；apiKey 为空时返回 ErrMissingAPIKey
func NewGroqChatModel(apiKey, modelName, apiURL string, opts ...GroqOption) (*GroqChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = DefaultGroqModel
	}
	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = DefaultGroqAPIURL
	}

	g := &GroqChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}

	logger.Info().Str("api_url", url).Str("model", mn).Msg("使用 Groq LLM 客户端")
	return g, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Generate 实现 model.BaseChatModel 接口
// 支持 model.WithModel、model.WithTemperature、model.WithMaxTokens、model.WithTopP、model.WithStop
func (g *GroqChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	ctx, span := tracing.Tracer(ctx, "digital-twin/llm").Start(ctx, "llm.Groq.Generate")
	defer span.End()

	result, err := g.generate(ctx, span, messages, opts...)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			tracing.RecordHTTPError(span, err, apiErr.StatusCode)
		} else {
			tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		}
	}
	return result, err
}

func (g *GroqChatModel) generate(ctx context.Context, span trace.Span, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{Model: &g.modelName}, opts...)

	reqPayload := chatCompletionRequest{
		Model:       g.modelName,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		TopP:        options.TopP,
		Stop:        options.Stop,
	}
	if options.Model != nil && *options.Model != "" {
		reqPayload.Model = *options.Model
	}
	for _, m := range messages {
		if m == nil {
			continue
		}
		reqPayload.Messages = append(reqPayload.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	span.SetAttributes(
		attribute.String("llm.model", reqPayload.Model),
		attribute.Int("llm.messages", len(reqPayload.Messages)),
	)

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Debug().Str("model", reqPayload.Model).Int("messages", len(reqPayload.Messages)).Msg("[Groq] 发送请求")

	start := time.Now()
	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	logger.Debug().
		Int("status", httpResp.StatusCode).
		Dur("latency", time.Since(start)).
		Str("body", tracing.TruncateString(string(bodyBytes), tracing.DefaultMaxLength)).
		Msg("[Groq] 收到响应")

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: httpResp.StatusCode,
			Body:       tracing.TruncateString(string(bodyBytes), tracing.DefaultMaxLength),
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &completion); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := completion.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	result := schema.AssistantMessage(content, nil)
	result.ResponseMeta = &schema.ResponseMeta{FinishReason: choice.FinishReason}
	if completion.Usage != nil {
		span.SetAttributes(attribute.Int("llm.total_tokens", completion.Usage.TotalTokens))
		result.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}
	}
	return result, nil
}

// Stream 实现 model.BaseChatModel 接口，问答管线不使用流式输出
func (g *GroqChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("GroqChatModel 的 Stream 方法未实现")
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (g *GroqChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) == 0 {
		return g, nil
	}
	return nil, ErrToolsUnsupported
}

// ModelName 当前使用的模型名
func (g *GroqChatModel) ModelName() string { return g.modelName }

var _ model.ToolCallingChatModel = (*GroqChatModel)(nil)
