package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/notify"
	"projecthub/internal/service"
)

// WSHandler 项目动态 websocket
type WSHandler struct {
	projectSvc service.ProjectService
	hub        *notify.Hub
	logger     *zap.Logger
}

// NewWSHandler 创建 WSHandler
func NewWSHandler(projectSvc service.ProjectService, hub *notify.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{projectSvc: projectSvc, hub: hub, logger: logger}
}

// Subscribe 订阅项目的通知投递动态
// GET /ws/projects/:id?token=<access token>
func (h *WSHandler) Subscribe(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.projectSvc.Get(c.Request.Context(), projectID); err != nil {
		handleError(c, err)
		return
	}

	// 升级失败时 upgrader 已写入错误响应
	if err := h.hub.Serve(c.Writer, c.Request, projectID); err != nil {
		h.logger.Debug("websocket 升级失败", zap.String("project_id", projectID), zap.Error(err))
	}
}
