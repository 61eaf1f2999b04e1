package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewGroqChatModelRequiresKey(t *testing.T) {
	_, err := NewGroqChatModel("  ", "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	m, err := NewGroqChatModel("key", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultGroqModel, m.ModelName())
}

func TestGroqGenerate(t *testing.T) {
	var captured chatCompletionRequest
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","model":"llama-3.1-8b-instant","choices":[{"index":0,"message":{"role":"assistant","content":"Hi, I am Jane."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	m, err := NewGroqChatModel("secret", "", srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You are Jane."),
		schema.UserMessage("Who are you?"),
	}, model.WithTemperature(0.7), model.WithMaxTokens(200))
	require.NoError(t, err)

	assert.Equal(t, "Hi, I am Jane.", msg.Content)
	assert.Equal(t, schema.Assistant, msg.Role)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, "stop", msg.ResponseMeta.FinishReason)
	assert.Equal(t, 15, msg.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "Bearer secret", authHeader)
	assert.Equal(t, DefaultGroqModel, captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "Who are you?", captured.Messages[1].Content)
	require.NotNil(t, captured.Temperature)
	assert.InDelta(t, 0.7, *captured.Temperature, 1e-6)
	require.NotNil(t, captured.MaxTokens)
	assert.Equal(t, 200, *captured.MaxTokens)
}

func TestGroqGenerateRecordsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ctx, parent := tp.Tracer("test").Start(context.Background(), "synthesize")

	m, err := NewGroqChatModel("k", "", srv.URL)
	require.NoError(t, err)
	_, err = m.Generate(ctx, []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	parent.End()

	var llmSpan sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "llm.Groq.Generate" {
			llmSpan = s
		}
	}
	require.NotNil(t, llmSpan)
	assert.Equal(t, codes.Error, llmSpan.Status().Code)
	assert.Equal(t, parent.SpanContext().SpanID(), llmSpan.Parent().SpanID())

	attrs := map[string]string{}
	for _, kv := range llmSpan.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "http", attrs["error.type"])
	assert.Equal(t, "server_error", attrs["error.category"])
	assert.Equal(t, "503", attrs["http.status_code"])
	assert.Equal(t, DefaultGroqModel, attrs["llm.model"])
}

func TestGroqGenerateErrors(t *testing.T) {
	t.Run("non 200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
		}))
		defer srv.Close()

		m, err := NewGroqChatModel("k", "", srv.URL)
		require.NoError(t, err)
		_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "rate limit")
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		m, err := NewGroqChatModel("k", "", srv.URL)
		require.NoError(t, err)
		_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
		assert.ErrorIs(t, err, ErrNoChoices)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		m, err := NewGroqChatModel("k", "", srv.URL)
		require.NoError(t, err)
		_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
		assert.Error(t, err)
	})
}

func TestGroqWithTools(t *testing.T) {
	m, err := NewGroqChatModel("k", "", "")
	require.NoError(t, err)

	same, err := m.WithTools(nil)
	require.NoError(t, err)
	assert.Same(t, m, same)

	_, err = m.WithTools([]*schema.ToolInfo{{Name: "get_weather"}})
	assert.ErrorIs(t, err, ErrToolsUnsupported)
}

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(60, 2) // 每秒一个令牌
	current := time.Unix(1000, 0)
	tb.now = func() time.Time { return current }
	tb.lastRefillTime = current

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "桶已空")

	current = current.Add(1500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	// 补充不会超过容量
	current = current.Add(time.Hour)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}

func TestThrottledChatModelDoesNotRetry(t *testing.T) {
	inner := NewMockChatModel("", errors.New("upstream down"))
	throttled := NewThrottledChatModel(inner, 600)

	_, err := throttled.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.EqualError(t, err, "upstream down")
	assert.Equal(t, 1, inner.Calls())
}

func TestMockChatModel(t *testing.T) {
	t.Run("echo", func(t *testing.T) {
		m := NewEchoChatModel(func(s string) string { return "<b>" + s + "</b>" })
		msg, err := m.Generate(context.Background(), []*schema.Message{
			schema.SystemMessage("sys"),
			schema.UserMessage("prompt"),
		}, model.WithMaxTokens(50))
		require.NoError(t, err)
		assert.Equal(t, "<b>prompt</b>", msg.Content)
		assert.Equal(t, 50, *m.LastOptions().MaxTokens)
		assert.Len(t, m.LastMessages(), 2)
	})

	t.Run("sequential", func(t *testing.T) {
		m := NewMockChatModelSequential([]MockResponse{{Content: "one"}, {Error: errors.New("two")}})
		msg, err := m.Generate(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "one", msg.Content)
		_, err = m.Generate(context.Background(), nil)
		assert.EqualError(t, err, "two")
		_, err = m.Generate(context.Background(), nil)
		assert.Error(t, err)
		assert.Equal(t, 3, m.Calls())
	})
}
