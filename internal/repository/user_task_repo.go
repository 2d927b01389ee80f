package repository

import (
	"context"

	"gorm.io/gorm"

	"projecthub/internal/model"
)

// UserTaskRepository 用户-任务关联数据访问接口
type UserTaskRepository interface {
	Create(ctx context.Context, ut *model.UserTask) error
	Get(ctx context.Context, userID, taskID string) (*model.UserTask, error)
	ListByUser(ctx context.Context, userID string) ([]model.UserTask, error)
	ListByTask(ctx context.Context, taskID string) ([]model.UserTask, error)
	Delete(ctx context.Context, userID, taskID string) (int64, error)
	DeleteByTask(ctx context.Context, taskID string) (int64, error)
	DeleteByTaskIDs(ctx context.Context, taskIDs []string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type userTaskRepo struct {
	db *gorm.DB
}

// NewUserTaskRepo 创建 UserTaskRepository 实例
func NewUserTaskRepo(db *gorm.DB) UserTaskRepository {
	return &userTaskRepo{db: db}
}

func (r *userTaskRepo) Create(ctx context.Context, ut *model.UserTask) error {
	return r.db.WithContext(ctx).Create(ut).Error
}

func (r *userTaskRepo) Get(ctx context.Context, userID, taskID string) (*model.UserTask, error) {
	var ut model.UserTask
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		First(&ut).Error
	if err != nil {
		return nil, err
	}
	return &ut, nil
}

func (r *userTaskRepo) ListByUser(ctx context.Context, userID string) ([]model.UserTask, error) {
	var uts []model.UserTask
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&uts).Error
	return uts, err
}

func (r *userTaskRepo) ListByTask(ctx context.Context, taskID string) ([]model.UserTask, error) {
	var uts []model.UserTask
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&uts).Error
	return uts, err
}

func (r *userTaskRepo) Delete(ctx context.Context, userID, taskID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Delete(&model.UserTask{})
	return result.RowsAffected, result.Error
}

func (r *userTaskRepo) DeleteByTask(ctx context.Context, taskID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&model.UserTask{})
	return result.RowsAffected, result.Error
}

func (r *userTaskRepo) DeleteByTaskIDs(ctx context.Context, taskIDs []string) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("task_id IN ?", taskIDs).Delete(&model.UserTask{})
	return result.RowsAffected, result.Error
}

func (r *userTaskRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.UserTask{})
	return result.RowsAffected, result.Error
}
