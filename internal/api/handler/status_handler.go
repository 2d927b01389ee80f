package handler

import (
	"github.com/gin-gonic/gin"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

// StatusHandler 任务状态字典 HTTP 处理器
type StatusHandler struct {
	statusSvc service.StatusService
}

// NewStatusHandler 创建 StatusHandler
func NewStatusHandler(statusSvc service.StatusService) *StatusHandler {
	return &StatusHandler{statusSvc: statusSvc}
}

// CreateStatus POST /api/v1/status
func (h *StatusHandler) CreateStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	status, err := h.statusSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, status)
}

// GetStatus GET /api/v1/status/:id
func (h *StatusHandler) GetStatus(c *gin.Context) {
	status, err := h.statusSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, status)
}

// ListStatuses GET /api/v1/status
func (h *StatusHandler) ListStatuses(c *gin.Context) {
	statuses, err := h.statusSvc.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": statuses})
}

// UpdateStatus PUT /api/v1/status/:id
func (h *StatusHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	status, err := h.statusSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, status)
}

// DeleteStatus DELETE /api/v1/status/:id
func (h *StatusHandler) DeleteStatus(c *gin.Context) {
	if err := h.statusSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
