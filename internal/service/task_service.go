package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
	"projecthub/pkg/storage"
)

// ── 任务模块业务错误 ──

var (
	ErrTaskNotFound      = pkgerrors.New(pkgerrors.ErrNotFound, "Task not found")
	ErrEmptyTaskTitle    = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Task title is required")
	ErrNegativeMinutes   = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Total minutes must not be negative")
	ErrUnsupportedImage  = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Only jpg, jpeg and png images are allowed")
	ErrImageUploadFailed = pkgerrors.New(pkgerrors.ErrUpstreamUnavailable, "Image upload failed")
	ErrTaskWriteFailed   = pkgerrors.New(pkgerrors.ErrWriteFailed, "Failed to update task")
)

const defaultPriority = "medium"

// TaskService 任务业务接口
//
// 设计说明：
//   - 图片先校验扩展名再上传，上传成功后才写库
//   - 删除任务时在同一事务中删除其用户任务关联
//   - 状态切换只校验目标状态存在，不限制转换方向
type TaskService interface {
	Create(ctx context.Context, req *dto.CreateTaskRequest, image *dto.ImageUpload) (*dto.TaskResponse, error)
	Get(ctx context.Context, taskID string) (*dto.TaskResponse, error)
	ListByProject(ctx context.Context, projectID string) ([]dto.TaskResponse, error)
	Update(ctx context.Context, taskID string, req *dto.UpdateTaskRequest, image *dto.ImageUpload) (*dto.TaskResponse, error)
	Delete(ctx context.Context, taskID string) error

	// ListForDeveloper 列出开发者在指定项目中被指派的任务；projectID 为空时不限项目
	ListForDeveloper(ctx context.Context, developerID, projectID string) ([]dto.TaskResponse, error)
	GetStatus(ctx context.Context, taskID string) (*dto.TaskStatusResponse, error)
	UpdateStatus(ctx context.Context, taskID string, req *dto.UpdateTaskStatusRequest) (*dto.TaskStatusResponse, error)
}

type taskService struct {
	repo     *repository.Repository
	uploader storage.Uploader
	logger   *zap.Logger
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(repo *repository.Repository, uploader storage.Uploader, logger *zap.Logger) TaskService {
	return &taskService{repo: repo, uploader: uploader, logger: logger}
}

func (s *taskService) getTask(ctx context.Context, taskID string) (*model.Task, error) {
	if err := validateIDs(taskID); err != nil {
		return nil, err
	}
	task, err := s.repo.Task.GetByID(ctx, taskID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	return task, nil
}

// checkModule 校验模块存在且属于项目
func (s *taskService) checkModule(ctx context.Context, moduleID, projectID string) error {
	if err := validateIDs(moduleID); err != nil {
		return err
	}
	module, err := s.repo.Module.GetByID(ctx, moduleID)
	if err != nil {
		if isNotFound(err) {
			return ErrModuleNotFound
		}
		s.logger.Error("查询模块失败", zap.String("module_id", moduleID), zap.Error(err))
		return err
	}
	if module.ProjectID != projectID {
		return ErrModuleWrongProject
	}
	return nil
}

// uploadImage 校验并上传图片；image 为 nil 时返回 nil
func (s *taskService) uploadImage(ctx context.Context, image *dto.ImageUpload) (*string, error) {
	if image == nil {
		return nil, nil
	}
	if err := storage.ValidateImageName(image.Filename); err != nil {
		return nil, ErrUnsupportedImage
	}
	url, err := s.uploader.Upload(ctx, image.Path)
	if err != nil {
		s.logger.Warn("任务图片上传失败", zap.String("filename", image.Filename), zap.Error(err))
		return nil, ErrImageUploadFailed
	}
	return &url, nil
}

func (s *taskService) Create(ctx context.Context, req *dto.CreateTaskRequest, image *dto.ImageUpload) (*dto.TaskResponse, error) {
	if err := validateIDs(req.ProjectID, req.ModuleID, req.StatusID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTaskTitle
	}
	if req.TotalMinutes < 0 {
		return nil, ErrNegativeMinutes
	}
	if image != nil {
		if err := storage.ValidateImageName(image.Filename); err != nil {
			return nil, ErrUnsupportedImage
		}
	}

	if _, err := lookupProject(ctx, s.repo, s.logger, req.ProjectID); err != nil {
		return nil, err
	}
	if err := s.checkModule(ctx, req.ModuleID, req.ProjectID); err != nil {
		return nil, err
	}
	if _, err := lookupStatus(ctx, s.repo, s.logger, req.StatusID); err != nil {
		return nil, err
	}

	imageURL, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = defaultPriority
	}
	statusID := req.StatusID
	task := &model.Task{
		Title:        title,
		Priority:     priority,
		Description:  req.Description,
		TotalMinutes: req.TotalMinutes,
		ModuleID:     req.ModuleID,
		ProjectID:    req.ProjectID,
		StatusID:     &statusID,
		ImageURL:     imageURL,
	}
	if err := s.repo.Task.Create(ctx, task); err != nil {
		s.logger.Error("创建任务失败", zap.String("project_id", req.ProjectID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("任务已创建", zap.String("task_id", task.TaskID), zap.String("project_id", task.ProjectID))
	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Get(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) ListByProject(ctx context.Context, projectID string) ([]dto.TaskResponse, error) {
	if err := validateIDs(projectID); err != nil {
		return nil, err
	}
	tasks, err := s.repo.Task.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询项目任务失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return toTaskResponses(tasks), nil
}

func (s *taskService) Update(ctx context.Context, taskID string, req *dto.UpdateTaskRequest, image *dto.ImageUpload) (*dto.TaskResponse, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrEmptyTaskTitle
		}
		task.Title = title
	}
	if req.Priority != nil && *req.Priority != "" {
		task.Priority = *req.Priority
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.TotalMinutes != nil {
		if *req.TotalMinutes < 0 {
			return nil, ErrNegativeMinutes
		}
		task.TotalMinutes = *req.TotalMinutes
	}
	if req.ModuleID != nil && *req.ModuleID != task.ModuleID {
		if err := s.checkModule(ctx, *req.ModuleID, task.ProjectID); err != nil {
			return nil, err
		}
		task.ModuleID = *req.ModuleID
	}
	if req.StatusID != nil {
		if _, err := lookupStatus(ctx, s.repo, s.logger, *req.StatusID); err != nil {
			return nil, err
		}
		statusID := *req.StatusID
		task.StatusID = &statusID
	}

	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		task.ImageURL = url
	}

	if err := s.repo.Task.Update(ctx, task); err != nil {
		s.logger.Error("更新任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("任务已更新", zap.String("task_id", taskID))
	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Delete(ctx context.Context, taskID string) error {
	if err := validateIDs(taskID); err != nil {
		return err
	}

	var assignments int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if assignments, err = tx.UserTask.DeleteByTask(ctx, taskID); err != nil {
			return err
		}
		rows, err := tx.Task.Delete(ctx, taskID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) {
			s.logger.Error("删除任务失败", zap.String("task_id", taskID), zap.Error(err))
		}
		return err
	}

	s.logger.Info("任务已删除", zap.String("task_id", taskID), zap.Int64("assignments", assignments))
	return nil
}

func (s *taskService) ListForDeveloper(ctx context.Context, developerID, projectID string) ([]dto.TaskResponse, error) {
	ids := []string{developerID}
	if projectID != "" {
		ids = append(ids, projectID)
	}
	if err := validateIDs(ids...); err != nil {
		return nil, err
	}
	tasks, err := s.repo.Task.ListByUser(ctx, developerID, projectID)
	if err != nil {
		s.logger.Error("查询开发者任务失败", zap.String("developer_id", developerID), zap.Error(err))
		return nil, err
	}
	return toTaskResponses(tasks), nil
}

func (s *taskService) GetStatus(ctx context.Context, taskID string) (*dto.TaskStatusResponse, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	resp := &dto.TaskStatusResponse{TaskID: task.TaskID, StatusID: task.StatusID}
	if task.StatusID == nil {
		return resp, nil
	}

	// 状态可能已从目录中删除，此时仅返回 ID
	status, err := s.repo.Status.GetByID(ctx, *task.StatusID)
	if err != nil {
		if isNotFound(err) {
			return resp, nil
		}
		s.logger.Error("查询状态失败", zap.String("status_id", *task.StatusID), zap.Error(err))
		return nil, err
	}
	resp.Label = status.Label
	return resp, nil
}

func (s *taskService) UpdateStatus(ctx context.Context, taskID string, req *dto.UpdateTaskStatusRequest) (*dto.TaskStatusResponse, error) {
	if err := validateIDs(taskID); err != nil {
		return nil, err
	}
	status, err := lookupStatus(ctx, s.repo, s.logger, req.StatusID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getTask(ctx, taskID); err != nil {
		return nil, err
	}

	rows, err := s.repo.Task.UpdateStatus(ctx, taskID, status.StatusID)
	if err != nil {
		s.logger.Error("更新任务状态失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	if rows == 0 {
		return nil, ErrTaskWriteFailed
	}

	s.logger.Info("任务状态已更新", zap.String("task_id", taskID), zap.String("status", status.Label))
	statusID := status.StatusID
	return &dto.TaskStatusResponse{TaskID: taskID, StatusID: &statusID, Label: status.Label}, nil
}
