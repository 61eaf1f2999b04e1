package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatModel 用于测试的 model.BaseChatModel 模拟实现
type MockChatModel struct {
	mu sync.Mutex

	// 固定响应
	ExpectedResponse string
	ExpectedError    error

	// Echo 为 true 时把最后一条用户消息原样返回，可用 Wrap 加上标记
	Echo bool
	Wrap func(string) string

	// 顺序响应
	SequentialResponses []MockResponse
	responseIndex       int

	calls            int
	receivedMessages [][]*schema.Message
	receivedOptions  []*model.Options
}

// NewMockChatModel 创建返回固定响应的模拟模型
func NewMockChatModel(expectedResponse string, expectedError error) *MockChatModel {
	return &MockChatModel{ExpectedResponse: expectedResponse, ExpectedError: expectedError}
}

// NewEchoChatModel 创建回显提示词的模拟模型
func NewEchoChatModel(wrap func(string) string) *MockChatModel {
	return &MockChatModel{Echo: true, Wrap: wrap}
}

// NewMockChatModelSequential 按顺序返回不同响应
func NewMockChatModelSequential(responses []MockResponse) *MockChatModel {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock client has no responses configured")}}
	}
	return &MockChatModel{SequentialResponses: responses}
}

// Generate 模拟 LLM 的 Generate 方法
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	received := make([]*schema.Message, len(input))
	copy(received, input)
	m.receivedMessages = append(m.receivedMessages, received)
	m.receivedOptions = append(m.receivedOptions, model.GetCommonOptions(&model.Options{}, opts...))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(m.SequentialResponses) > 0:
		if m.responseIndex >= len(m.SequentialResponses) {
			return nil, errors.New("mock client has run out of sequential responses")
		}
		resp := m.SequentialResponses[m.responseIndex]
		m.responseIndex++
		if resp.Error != nil {
			return nil, resp.Error
		}
		return schema.AssistantMessage(resp.Content, nil), nil

	case m.Echo:
		content := lastUserContent(input)
		if m.Wrap != nil {
			content = m.Wrap(content)
		}
		return schema.AssistantMessage(content, nil), nil
	}

	if m.ExpectedError != nil {
		return nil, m.ExpectedError
	}
	return schema.AssistantMessage(m.ExpectedResponse, nil), nil
}

// Stream 模拟 LLM 的 Stream 方法
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not implemented in MockChatModel")
}

// Calls Generate 被调用的次数
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastMessages 最近一次调用收到的消息
func (m *MockChatModel) LastMessages() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.receivedMessages) == 0 {
		return nil
	}
	return m.receivedMessages[len(m.receivedMessages)-1]
}

// LastOptions 最近一次调用解析后的通用选项
func (m *MockChatModel) LastOptions() *model.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.receivedOptions) == 0 {
		return nil
	}
	return m.receivedOptions[len(m.receivedOptions)-1]
}

func lastUserContent(input []*schema.Message) string {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i] != nil && input[i].Role == schema.User {
			return input[i].Content
		}
	}
	return ""
}

var _ model.BaseChatModel = (*MockChatModel)(nil)
