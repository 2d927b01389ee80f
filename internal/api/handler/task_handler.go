package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

// TaskHandler 任务模块 HTTP 处理器
type TaskHandler struct {
	taskSvc     service.TaskService
	userTaskSvc service.UserTaskService
	uploadDir   string
	logger      *zap.Logger
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService, userTaskSvc service.UserTaskService, uploadDir string, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc, userTaskSvc: userTaskSvc, uploadDir: uploadDir, logger: logger}
}

// CreateTask 创建任务，可附带 multipart 字段 image
// POST /api/v1/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	image, cleanup, err := h.saveImage(c)
	if err != nil {
		h.imageError(c, err)
		return
	}
	defer cleanup()

	task, err := h.taskSvc.Create(c.Request.Context(), &req, image)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, task)
}

// GetTask GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, task)
}

// ListByProject 项目下的任务
// GET /api/v1/projects/:id/tasks
func (h *TaskHandler) ListByProject(c *gin.Context) {
	tasks, err := h.taskSvc.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": tasks})
}

// ListForDeveloper 开发者在某项目中被指派的任务
// GET /api/v1/developers/:id/projects/:project_id/tasks
func (h *TaskHandler) ListForDeveloper(c *gin.Context) {
	tasks, err := h.taskSvc.ListForDeveloper(c.Request.Context(), c.Param("id"), c.Param("project_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": tasks})
}

// UpdateTask 部分更新任务，可替换图片
// PUT /api/v1/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	image, cleanup, err := h.saveImage(c)
	if err != nil {
		h.imageError(c, err)
		return
	}
	defer cleanup()

	task, err := h.taskSvc.Update(c.Request.Context(), c.Param("id"), &req, image)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, task)
}

// DeleteTask DELETE /api/v1/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetTaskStatus GET /api/v1/tasks/:id/status
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	status, err := h.taskSvc.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, status)
}

// UpdateTaskStatus PUT /api/v1/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	var req dto.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	status, err := h.taskSvc.UpdateStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, status)
}

// ListUsers 被指派该任务的用户
// GET /api/v1/tasks/:id/users
func (h *TaskHandler) ListUsers(c *gin.Context) {
	users, err := h.userTaskSvc.ListUsersByTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": users})
}

// errSaveUpload 上传文件落盘失败，属于服务端错误
var errSaveUpload = errors.New("save upload")

// saveImage 将 multipart 字段 image 落盘到 uploadDir
// 未上传图片时返回 nil；cleanup 始终可调用，用于删除临时文件
func (h *TaskHandler) saveImage(c *gin.Context) (*dto.ImageUpload, func(), error) {
	noop := func() {}

	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, err
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, noop, fmt.Errorf("%w: %v", errSaveUpload, err)
	}
	dst := filepath.Join(h.uploadDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return nil, noop, fmt.Errorf("%w: %v", errSaveUpload, err)
	}

	cleanup := func() {
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("删除临时上传文件失败", zap.String("path", dst), zap.Error(err))
		}
	}
	return &dto.ImageUpload{Path: dst, Filename: file.Filename}, cleanup, nil
}

func (h *TaskHandler) imageError(c *gin.Context, err error) {
	if errors.Is(err, errSaveUpload) {
		h.logger.Error("保存任务图片失败", zap.Error(err))
		response.InternalError(c)
		return
	}
	bindError(c, err)
}
