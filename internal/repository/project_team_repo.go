package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"projecthub/internal/model"
	pkgerrors "projecthub/pkg/errors"
)

// ManagerDrift 项目与团队记录中经理不一致的一行
type ManagerDrift struct {
	ProjectID        string
	ProjectManagerID *string
	TeamID           string
	TeamManagerID    *string
	TeamVersion      int
}

// ProjectTeamRepository 项目团队数据访问接口
// 所有修改均以 version 为条件，冲突时返回 pkgerrors.ErrOptimisticLock
type ProjectTeamRepository interface {
	Create(ctx context.Context, team *model.ProjectTeam) error
	GetByID(ctx context.Context, teamID string) (*model.ProjectTeam, error)
	GetByProject(ctx context.Context, projectID string) (*model.ProjectTeam, error)
	List(ctx context.Context) ([]model.ProjectTeam, error)
	ListByDeveloper(ctx context.Context, developerID string) ([]model.ProjectTeam, error)
	Update(ctx context.Context, team *model.ProjectTeam) error
	DeleteByID(ctx context.Context, teamID string) (int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
	// RemoveDeveloperEverywhere 从所有团队中移除开发者（用户删除时使用）
	RemoveDeveloperEverywhere(ctx context.Context, developerID string) (int64, error)
	// ClearManagerEverywhere 清空所有团队中的指定经理（用户删除时使用）
	ClearManagerEverywhere(ctx context.Context, managerID string) (int64, error)
	ListManagerDrift(ctx context.Context) ([]ManagerDrift, error)
}

type projectTeamRepo struct {
	db *gorm.DB
}

// NewProjectTeamRepo 创建 ProjectTeamRepository 实例
func NewProjectTeamRepo(db *gorm.DB) ProjectTeamRepository {
	return &projectTeamRepo{db: db}
}

func (r *projectTeamRepo) Create(ctx context.Context, team *model.ProjectTeam) error {
	if team.Developers == nil {
		team.Developers = model.StringArray{}
	}
	if team.Version == 0 {
		team.Version = 1
	}
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *projectTeamRepo) GetByID(ctx context.Context, teamID string) (*model.ProjectTeam, error) {
	var team model.ProjectTeam
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *projectTeamRepo) GetByProject(ctx context.Context, projectID string) (*model.ProjectTeam, error) {
	var team model.ProjectTeam
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *projectTeamRepo) List(ctx context.Context) ([]model.ProjectTeam, error) {
	var teams []model.ProjectTeam
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&teams).Error
	return teams, err
}

func (r *projectTeamRepo) ListByDeveloper(ctx context.Context, developerID string) ([]model.ProjectTeam, error) {
	var teams []model.ProjectTeam
	err := r.db.WithContext(ctx).
		Where("? = ANY(developers)", developerID).
		Order("created_at DESC").
		Find(&teams).Error
	return teams, err
}

// Update 条件写入：仅当数据库中的 version 与读取时一致才生效
func (r *projectTeamRepo) Update(ctx context.Context, team *model.ProjectTeam) error {
	oldVersion := team.Version
	developers := team.Developers
	if developers == nil {
		developers = model.StringArray{}
	}
	result := r.db.WithContext(ctx).
		Model(&model.ProjectTeam{}).
		Where("team_id = ? AND version = ?", team.TeamID, oldVersion).
		Updates(map[string]interface{}{
			"manager_id": team.ManagerID,
			"developers": developers,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	team.Version = oldVersion + 1
	return nil
}

func (r *projectTeamRepo) DeleteByID(ctx context.Context, teamID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("team_id = ?", teamID).Delete(&model.ProjectTeam{})
	return result.RowsAffected, result.Error
}

func (r *projectTeamRepo) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&model.ProjectTeam{})
	return result.RowsAffected, result.Error
}

func (r *projectTeamRepo) RemoveDeveloperEverywhere(ctx context.Context, developerID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ProjectTeam{}).
		Where("? = ANY(developers)", developerID).
		Updates(map[string]interface{}{
			"developers": gorm.Expr("array_remove(developers, ?)", developerID),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *projectTeamRepo) ClearManagerEverywhere(ctx context.Context, managerID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ProjectTeam{}).
		Where("manager_id = ?", managerID).
		Updates(map[string]interface{}{
			"manager_id": nil,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *projectTeamRepo) ListManagerDrift(ctx context.Context) ([]ManagerDrift, error) {
	var rows []ManagerDrift
	err := r.db.WithContext(ctx).
		Table("project_teams t").
		Select("p.project_id, p.manager_id AS project_manager_id, t.team_id, t.manager_id AS team_manager_id, t.version AS team_version").
		Joins("JOIN projects p ON p.project_id = t.project_id").
		Where("p.manager_id IS DISTINCT FROM t.manager_id").
		Scan(&rows).Error
	return rows, err
}
