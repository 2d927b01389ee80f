package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "projecthub/pkg/errors"
	"projecthub/pkg/response"
)

// handleError 按错误类别统一映射 HTTP 状态码
// 非业务错误只返回通用信息，存储层细节不外泄
func handleError(c *gin.Context, err error) {
	msg := pkgerrors.Message(err)

	switch {
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.BadRequest(c, response.CodeInvalidArgument, msg)
	case errors.Is(err, pkgerrors.ErrUnauthenticated):
		response.Unauthorized(c, response.CodeUnauthorized, msg)
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, response.CodeForbidden, msg)
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, response.CodeNotFound, msg)
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, response.CodeConflict, msg)
	case errors.Is(err, pkgerrors.ErrWriteFailed):
		response.Conflict(c, response.CodeWriteFailed, msg)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, response.CodeConflict, "Resource was modified concurrently, please retry")
	case errors.Is(err, pkgerrors.ErrUpstreamUnavailable):
		response.BadGateway(c, msg)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// bindError 请求体解析失败：超出大小限制返回 413，其余 400
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeInvalidArgument, "Request body too large")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidArgument, "Invalid request parameters", err.Error())
}
