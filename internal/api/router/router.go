package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"digital-twin-go/internal/api/handler"
	"digital-twin-go/internal/logger"
	"digital-twin-go/internal/tracing"
)

// RegisterRoutes 注册 API 路由
// apiKeys 去掉空白项后非空时，除健康检查外的接口都需要 "Authorization: Bearer <key>"
func RegisterRoutes(h *server.Hertz, twinHandler *handler.TwinHandler, apiKeys []string) {
	api := h.Group("/api/v1")

	// 健康检查不需要鉴权
	api.GET("/health", twinHandler.HandleHealth)

	protected := api.Group("")
	if keys := cleanKeys(apiKeys); len(keys) > 0 {
		protected.Use(NewKeyAuth(keys))
	} else if len(apiKeys) > 0 {
		logger.Warn().Int("configured", len(apiKeys)).Msg("server.api_keys 只包含空值，未启用 API key 鉴权")
	}

	protected.POST("/ask", twinHandler.HandleAsk)
	protected.GET("/sessions/:session_id/history", twinHandler.HandleHistory)
	protected.DELETE("/sessions/:session_id/history", twinHandler.HandleClearHistory)
}

var errInvalidAPIKey = errors.New("invalid api key")

// NewKeyAuth Bearer key 鉴权中间件
// apiKeys 中的空白项会被忽略
func NewKeyAuth(apiKeys []string) app.HandlerFunc {
	cleaned := cleanKeys(apiKeys)
	keys := make([][]byte, 0, len(cleaned))
	for _, k := range cleaned {
		keys = append(keys, []byte(k))
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(ctx context.Context, _ *app.RequestContext, key string) (bool, error) {
			for _, k := range keys {
				if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
					return true, nil
				}
			}
			logger.Ctx(ctx).Debug().Str("api_key", tracing.MaskPII(key)).Msg("未知的 API key")
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			logger.Ctx(ctx).Warn().Err(err).Str("path", string(c.Path())).Msg("API key 校验失败")
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "invalid or missing API key"})
		}),
	)
}

func cleanKeys(apiKeys []string) []string {
	out := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
