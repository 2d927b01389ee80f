package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/notify"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
)

// ── 用户任务模块业务错误 ──

var (
	ErrUserNotFound        = pkgerrors.New(pkgerrors.ErrNotFound, "User not found")
	ErrTaskAlreadyAssigned = pkgerrors.New(pkgerrors.ErrConflict, "Task already assigned to this user")
	ErrAssignmentNotFound  = pkgerrors.New(pkgerrors.ErrNotFound, "Task assignment not found")
)

// UserTaskService 用户任务指派业务接口
type UserTaskService interface {
	// Assign 指派任务给用户；存在 "Assigned" 状态时任务切换到该状态
	Assign(ctx context.Context, req *dto.AssignTaskRequest) (*dto.UserTaskResponse, error)
	ListByUser(ctx context.Context, userID string) ([]dto.UserTaskResponse, error)
	ListUsersByTask(ctx context.Context, taskID string) ([]dto.UserResponse, error)
	Remove(ctx context.Context, userID, taskID string) error
}

type userTaskService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserTaskService 创建 UserTaskService 实例
func NewUserTaskService(repo *repository.Repository, logger *zap.Logger) UserTaskService {
	return &userTaskService{repo: repo, logger: logger}
}

func (s *userTaskService) loadPair(ctx context.Context, r *repository.Repository, userID, taskID string) (*model.User, *model.Task, error) {
	user, err := r.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, err
	}
	task, err := r.Task.GetByID(ctx, taskID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, nil, err
	}
	return user, task, nil
}

func (s *userTaskService) Assign(ctx context.Context, req *dto.AssignTaskRequest) (*dto.UserTaskResponse, error) {
	if err := validateIDs(req.UserID, req.TaskID); err != nil {
		return nil, err
	}

	var ut *model.UserTask
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		user, task, err := s.loadPair(ctx, tx, req.UserID, req.TaskID)
		if err != nil {
			return err
		}

		if _, err := tx.UserTask.Get(ctx, req.UserID, req.TaskID); err == nil {
			return ErrTaskAlreadyAssigned
		} else if !isNotFound(err) {
			return err
		}

		ut = &model.UserTask{UserID: req.UserID, TaskID: req.TaskID}
		if err := tx.UserTask.Create(ctx, ut); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTaskAlreadyAssigned
			}
			return err
		}

		assigned, err := tx.Status.GetByLabel(ctx, model.StatusLabelAssigned)
		switch {
		case err == nil:
			if _, err := tx.Task.UpdateStatus(ctx, task.TaskID, assigned.StatusID); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}

		return tx.Outbox.Create(ctx, notify.TaskAssigned(task, user))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("任务已指派", zap.String("user_id", req.UserID), zap.String("task_id", req.TaskID))
	resp := toUserTaskResponse(ut)
	return &resp, nil
}

func (s *userTaskService) ListByUser(ctx context.Context, userID string) ([]dto.UserTaskResponse, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	uts, err := s.repo.UserTask.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询用户任务失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.UserTaskResponse, 0, len(uts))
	for i := range uts {
		list = append(list, toUserTaskResponse(&uts[i]))
	}
	return list, nil
}

func (s *userTaskService) ListUsersByTask(ctx context.Context, taskID string) ([]dto.UserResponse, error) {
	if err := validateIDs(taskID); err != nil {
		return nil, err
	}
	users, err := s.repo.User.ListByTask(ctx, taskID)
	if err != nil {
		s.logger.Error("查询任务用户失败", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}
	return toUserResponses(users), nil
}

func (s *userTaskService) Remove(ctx context.Context, userID, taskID string) error {
	if err := validateIDs(userID, taskID); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		rows, err := tx.UserTask.Delete(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAssignmentNotFound
		}

		// 用户或任务已不存在时不发通知
		user, task, err := s.loadPair(ctx, tx, userID, taskID)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrNotFound) {
				return nil
			}
			return err
		}
		return tx.Outbox.Create(ctx, notify.TaskRemoved(task, user))
	})
	if err != nil {
		return err
	}

	s.logger.Info("任务指派已撤销", zap.String("user_id", userID), zap.String("task_id", taskID))
	return nil
}

func toUserTaskResponse(ut *model.UserTask) dto.UserTaskResponse {
	return dto.UserTaskResponse{
		ID:        ut.UserTaskID,
		UserID:    ut.UserID,
		TaskID:    ut.TaskID,
		CreatedAt: formatTime(ut.CreatedAt),
	}
}
