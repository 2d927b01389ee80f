package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"projecthub/internal/api/middleware"
	"projecthub/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "Not authenticated")
		return "", false
	}
	return s, true
}

// tokenInfo 当前请求 Token 的 jti 与过期时间
func tokenInfo(c *gin.Context) (string, time.Time) {
	return c.GetString(middleware.CtxTokenID), c.GetTime(middleware.CtxTokenExp)
}
