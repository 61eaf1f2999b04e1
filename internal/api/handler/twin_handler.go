package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"digital-twin-go/internal/constants"
	"digital-twin-go/internal/logger"
	"digital-twin-go/internal/tracing"
	"digital-twin-go/internal/transcript"
	"digital-twin-go/internal/types"
)

// RequestIDHeader 调用方可以自带请求ID
const RequestIDHeader = "X-Request-ID"

// Asker 问答服务，*twin.Service 实现了该接口
type Asker interface {
	Ask(ctx context.Context, sessionID, requestID, question string) types.AnswerResult
	History(ctx context.Context, sessionID string, limit int) ([]transcript.Exchange, error)
	ClearHistory(ctx context.Context, sessionID string) error
	Configured() bool
	SourceName() string
}

// TwinHandler 数字分身问答接口
type TwinHandler struct {
	svc Asker
}

// NewTwinHandler 创建一个新的 TwinHandler 实例
func NewTwinHandler(svc Asker) *TwinHandler {
	return &TwinHandler{svc: svc}
}

// HandleAsk 回答一个问题
// POST /api/v1/ask
func (h *TwinHandler) HandleAsk(ctx context.Context, c *app.RequestContext) {
	var req types.AskRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		badRequest(ctx, c, "请求体必须是JSON")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		badRequest(ctx, c, "question 不能为空")
		return
	}

	requestID := string(c.GetHeader(RequestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx = logger.WithFields(ctx, map[string]string{
		"request_id": requestID,
		"session_id": sessionID,
	})
	res := h.svc.Ask(ctx, sessionID, requestID, req.Question)
	if res.Sources == nil {
		res.Sources = []types.Source{}
	}

	c.Header(RequestIDHeader, requestID)
	c.JSON(consts.StatusOK, types.AskResponse{
		AnswerResult: res,
		SessionID:    sessionID,
		RequestID:    requestID,
	})
}

// HandleHistory 返回会话最近的问答记录
// GET /api/v1/sessions/:session_id/history?limit=n
func (h *TwinHandler) HandleHistory(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		badRequest(ctx, c, "session_id 不能为空")
		return
	}

	limit := constants.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(ctx, c, "limit 必须是正整数")
			return
		}
		limit = min(n, constants.MaxHistoryLimit)
	}

	history, err := h.svc.History(ctx, sessionID, limit)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("读取会话记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取会话记录失败"})
		return
	}
	if history == nil {
		history = []transcript.Exchange{}
	}

	c.JSON(consts.StatusOK, utils.H{
		"session_id": sessionID,
		"count":      len(history),
		"exchanges":  history,
	})
}

// HandleClearHistory 清除会话记录
// DELETE /api/v1/sessions/:session_id/history
func (h *TwinHandler) HandleClearHistory(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		badRequest(ctx, c, "session_id 不能为空")
		return
	}
	if err := h.svc.ClearHistory(ctx, sessionID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("清除会话记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "清除会话记录失败"})
		return
	}
	c.Status(consts.StatusNoContent)
}

// HandleHealth 健康检查
// GET /api/v1/health
func (h *TwinHandler) HandleHealth(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":         "ok",
		"llm_configured": h.svc.Configured(),
		"profile_source": h.svc.SourceName(),
		"version":        constants.Version,
	})
}

// badRequest 返回 400，并把校验错误记在当前请求的 span 上
func badRequest(ctx context.Context, c *app.RequestContext, msg string) {
	tracing.RecordError(trace.SpanFromContext(ctx), errors.New(msg), tracing.ErrorTypeValidation,
		attribute.String("http.route", string(c.Path())),
	)
	c.JSON(consts.StatusBadRequest, utils.H{"error": msg})
}
