package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"projecthub/internal/model"
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context, offset, limit int) ([]model.Project, int64, error)
	ListByManager(ctx context.Context, managerID string) ([]model.Project, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	// SetManager 写入或清空项目经理，返回受影响行数
	SetManager(ctx context.Context, projectID string, managerID, managerEmail *string) (int64, error)
	// ClearManagerEverywhere 清空指定经理负责的所有项目
	ClearManagerEverywhere(ctx context.Context, managerID string) (int64, error)
	// RefreshManagerEmails 按 manager_id 刷新 manager_email 缓存
	RefreshManagerEmails(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Where("project_id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) List(ctx context.Context, offset, limit int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Project{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepo) ListByManager(ctx context.Context, managerID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Where("manager_id = ?", managerID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Project, error) {
	var projects []model.Project
	if len(ids) == 0 {
		return projects, nil
	}
	err := r.db.WithContext(ctx).
		Where("project_id IN ?", ids).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ?", project.ProjectID).
		Updates(map[string]interface{}{
			"title":           project.Title,
			"description":     project.Description,
			"technology":      project.Technology,
			"estimated_hours": project.EstimatedHours,
			"start_date":      project.StartDate,
			"completion_date": project.CompletionDate,
			"updated_at":      time.Now(),
		}).Error
}

func (r *projectRepo) SetManager(ctx context.Context, projectID string, managerID, managerEmail *string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("project_id = ?", projectID).
		Updates(map[string]interface{}{
			"manager_id":    managerID,
			"manager_email": managerEmail,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *projectRepo) ClearManagerEverywhere(ctx context.Context, managerID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("manager_id = ?", managerID).
		Updates(map[string]interface{}{
			"manager_id":    nil,
			"manager_email": nil,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *projectRepo) RefreshManagerEmails(ctx context.Context) (int64, error) {
	db := r.db.WithContext(ctx)

	refreshed := db.Exec(`
		UPDATE projects p
		SET manager_email = u.email, updated_at = NOW()
		FROM users u
		WHERE u.user_id = p.manager_id
		  AND p.manager_email IS DISTINCT FROM u.email`)
	if refreshed.Error != nil {
		return 0, refreshed.Error
	}

	cleared := db.Exec(`
		UPDATE projects
		SET manager_email = NULL, updated_at = NOW()
		WHERE manager_id IS NULL AND manager_email IS NOT NULL`)
	if cleared.Error != nil {
		return refreshed.RowsAffected, cleared.Error
	}

	return refreshed.RowsAffected + cleared.RowsAffected, nil
}

func (r *projectRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("project_id = ?", id).Delete(&model.Project{})
	return result.RowsAffected, result.Error
}
