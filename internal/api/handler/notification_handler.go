package handler

import (
	"github.com/gin-gonic/gin"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

// NotificationHandler 通知发件箱查询 HTTP 处理器
type NotificationHandler struct {
	notifySvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notifySvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifySvc: notifySvc}
}

// ListNotifications 发件箱（管理员）
// GET /api/v1/notifications?status=failed
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	events, total, err := h.notifySvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, events, total, req.GetPage(), req.GetPageSize())
}

// ProjectActivity 项目最近的通知动态
// GET /api/v1/projects/:id/activity?limit=50
func (h *NotificationHandler) ProjectActivity(c *gin.Context) {
	events, err := h.notifySvc.ListByProject(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": events})
}
