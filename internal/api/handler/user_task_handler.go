package handler

import (
	"github.com/gin-gonic/gin"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

// UserTaskHandler 任务指派 HTTP 处理器
type UserTaskHandler struct {
	userTaskSvc service.UserTaskService
}

// NewUserTaskHandler 创建 UserTaskHandler
func NewUserTaskHandler(userTaskSvc service.UserTaskService) *UserTaskHandler {
	return &UserTaskHandler{userTaskSvc: userTaskSvc}
}

// Assign 指派任务给用户
// POST /api/v1/user-tasks
func (h *UserTaskHandler) Assign(c *gin.Context) {
	var req dto.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ut, err := h.userTaskSvc.Assign(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, ut)
}

// ListByUser 用户的任务指派
// GET /api/v1/user-tasks/:user_id
func (h *UserTaskHandler) ListByUser(c *gin.Context) {
	list, err := h.userTaskSvc.ListByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// Remove 撤销指派
// DELETE /api/v1/user-tasks/:user_id/:task_id
func (h *UserTaskHandler) Remove(c *gin.Context) {
	if err := h.userTaskSvc.Remove(c.Request.Context(), c.Param("user_id"), c.Param("task_id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
