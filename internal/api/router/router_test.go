package router

import (
	"bytes"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital-twin-go/internal/api/handler"
	"digital-twin-go/internal/llm"
	"digital-twin-go/internal/profile"
	"digital-twin-go/internal/synthesizer"
	"digital-twin-go/internal/twin"
)

func newEngine(t *testing.T, apiKeys []string) *server.Hertz {
	t.Helper()
	synth, err := synthesizer.New(llm.NewMockChatModel("Hi, I'm Christine.", nil))
	require.NoError(t, err)
	svc, err := twin.NewService(profile.NewEmbeddedSource(), twin.WithGenerator(synth))
	require.NoError(t, err)

	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	RegisterRoutes(h, handler.NewTwinHandler(svc), apiKeys)
	return h
}

func ask(h *server.Hertz, headers ...ut.Header) *ut.ResponseRecorder {
	body := []byte(`{"question":"What is your name?","session_id":"router-test"}`)
	headers = append(headers, ut.Header{Key: "Content-Type", Value: "application/json"})
	return ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/ask",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)}, headers...)
}

func TestRoutesWithoutAuth(t *testing.T) {
	h := newEngine(t, nil)

	resp := ask(h)
	assert.Equal(t, consts.StatusOK, resp.Code)
	assert.Contains(t, string(resp.Body.Bytes()), `"outcome":"answered"`)

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/sessions/router-test/history", nil)
	assert.Equal(t, consts.StatusOK, resp.Code)
	assert.Contains(t, string(resp.Body.Bytes()), `"count":1`)

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, consts.StatusOK, resp.Code)
}

func TestRoutesWithKeyAuth(t *testing.T) {
	h := newEngine(t, []string{"secret-key"})

	resp := ask(h)
	assert.Equal(t, consts.StatusUnauthorized, resp.Code)

	resp = ask(h, ut.Header{Key: "Authorization", Value: "Bearer wrong"})
	assert.Equal(t, consts.StatusUnauthorized, resp.Code)

	resp = ask(h, ut.Header{Key: "Authorization", Value: "Bearer secret-key"})
	assert.Equal(t, consts.StatusOK, resp.Code)

	// 健康检查不需要 key
	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, consts.StatusOK, resp.Code)
}

func TestBlankAPIKeysLeaveRoutesOpen(t *testing.T) {
	h := newEngine(t, []string{"", "  "})

	resp := ask(h)
	assert.Equal(t, consts.StatusOK, resp.Code)
	assert.Contains(t, string(resp.Body.Bytes()), `"outcome":"answered"`)
}

func TestCleanKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, cleanKeys([]string{" a ", "", "b", "   "}))
	assert.Empty(t, cleanKeys(nil))
}
