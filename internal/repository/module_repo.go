package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"projecthub/internal/model"
)

// ModuleRepository 项目模块数据访问接口
type ModuleRepository interface {
	Create(ctx context.Context, module *model.Module) error
	GetByID(ctx context.Context, id string) (*model.Module, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Module, error)
	Update(ctx context.Context, module *model.Module) error
	RenameProject(ctx context.Context, projectID, projectName string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}

type moduleRepo struct {
	db *gorm.DB
}

// NewModuleRepo 创建 ModuleRepository 实例
func NewModuleRepo(db *gorm.DB) ModuleRepository {
	return &moduleRepo{db: db}
}

func (r *moduleRepo) Create(ctx context.Context, module *model.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *moduleRepo) GetByID(ctx context.Context, id string) (*model.Module, error) {
	var module model.Module
	err := r.db.WithContext(ctx).Where("module_id = ?", id).First(&module).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *moduleRepo) ListByProject(ctx context.Context, projectID string) ([]model.Module, error) {
	var modules []model.Module
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&modules).Error
	return modules, err
}

func (r *moduleRepo) Update(ctx context.Context, module *model.Module) error {
	return r.db.WithContext(ctx).
		Model(&model.Module{}).
		Where("module_id = ?", module.ModuleID).
		Updates(map[string]interface{}{
			"project_name":    module.ProjectName,
			"name":            module.Name,
			"description":     module.Description,
			"estimated_hours": module.EstimatedHours,
			"status_id":       module.StatusID,
			"start_date":      module.StartDate,
			"updated_at":      time.Now(),
		}).Error
}

func (r *moduleRepo) RenameProject(ctx context.Context, projectID, projectName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Module{}).
		Where("project_id = ?", projectID).
		Updates(map[string]interface{}{
			"project_name": projectName,
			"updated_at":   time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *moduleRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("module_id = ?", id).Delete(&model.Module{})
	return result.RowsAffected, result.Error
}

func (r *moduleRepo) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&model.Module{})
	return result.RowsAffected, result.Error
}
