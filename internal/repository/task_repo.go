package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"projecthub/internal/model"
)

// TaskRepository 任务数据访问接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Task, error)
	ListIDsByProject(ctx context.Context, projectID string) ([]string, error)
	// ListByUser 查询指派给用户的任务，projectID 为空时不过滤项目
	ListByUser(ctx context.Context, userID, projectID string) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	UpdateStatus(ctx context.Context, id, statusID string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}

type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepo 创建 TaskRepository 实例
func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("task_id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) ListByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepo) ListIDsByProject(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("project_id = ?", projectID).
		Pluck("task_id", &ids).Error
	return ids, err
}

func (r *taskRepo) ListByUser(ctx context.Context, userID, projectID string) ([]model.Task, error) {
	var tasks []model.Task
	db := r.db.WithContext(ctx).
		Joins("JOIN user_tasks ut ON ut.task_id = tasks.task_id").
		Where("ut.user_id = ?", userID)
	if projectID != "" {
		db = db.Where("tasks.project_id = ?", projectID)
	}
	err := db.Order("tasks.created_at ASC").Find(&tasks).Error
	return tasks, err
}

func (r *taskRepo) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("task_id = ?", task.TaskID).
		Updates(map[string]interface{}{
			"title":         task.Title,
			"priority":      task.Priority,
			"description":   task.Description,
			"total_minutes": task.TotalMinutes,
			"module_id":     task.ModuleID,
			"project_id":    task.ProjectID,
			"status_id":     task.StatusID,
			"image_url":     task.ImageURL,
			"updated_at":    time.Now(),
		}).Error
}

func (r *taskRepo) UpdateStatus(ctx context.Context, id, statusID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("task_id = ?", id).
		Updates(map[string]interface{}{
			"status_id":  statusID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *taskRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("task_id = ?", id).Delete(&model.Task{})
	return result.RowsAffected, result.Error
}

func (r *taskRepo) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&model.Task{})
	return result.RowsAffected, result.Error
}
