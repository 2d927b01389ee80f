package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"projecthub/internal/model"
)

// StatusRepository 状态标签数据访问接口
type StatusRepository interface {
	Create(ctx context.Context, status *model.Status) error
	GetByID(ctx context.Context, id string) (*model.Status, error)
	GetByLabel(ctx context.Context, label string) (*model.Status, error)
	List(ctx context.Context) ([]model.Status, error)
	Update(ctx context.Context, status *model.Status) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type statusRepo struct {
	db *gorm.DB
}

// NewStatusRepo 创建 StatusRepository 实例
func NewStatusRepo(db *gorm.DB) StatusRepository {
	return &statusRepo{db: db}
}

func (r *statusRepo) Create(ctx context.Context, status *model.Status) error {
	return r.db.WithContext(ctx).Create(status).Error
}

func (r *statusRepo) GetByID(ctx context.Context, id string) (*model.Status, error) {
	var status model.Status
	err := r.db.WithContext(ctx).Where("status_id = ?", id).First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetByLabel 标签不唯一，取最早创建的一条
func (r *statusRepo) GetByLabel(ctx context.Context, label string) (*model.Status, error) {
	var status model.Status
	err := r.db.WithContext(ctx).
		Where("label = ?", label).
		Order("created_at ASC").
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *statusRepo) List(ctx context.Context) ([]model.Status, error) {
	var statuses []model.Status
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&statuses).Error
	return statuses, err
}

func (r *statusRepo) Update(ctx context.Context, status *model.Status) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Status{}).
		Where("status_id = ?", status.StatusID).
		Updates(map[string]interface{}{
			"label":      status.Label,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *statusRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("status_id = ?", id).Delete(&model.Status{})
	return result.RowsAffected, result.Error
}
