package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
)

// ── 模块业务错误 ──

var (
	ErrModuleNotFound     = pkgerrors.New(pkgerrors.ErrNotFound, "Module not found")
	ErrModuleHours        = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Estimated hours must be greater than zero")
	ErrEmptyModuleName    = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Module name is required")
	ErrModuleHasTasks     = pkgerrors.New(pkgerrors.ErrConflict, "Module still has tasks")
	ErrModuleWrongProject = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Module does not belong to the project")
)

// ModuleService 项目模块业务接口
type ModuleService interface {
	Create(ctx context.Context, req *dto.CreateModuleRequest) (*dto.ModuleResponse, error)
	Get(ctx context.Context, moduleID string) (*dto.ModuleResponse, error)
	ListByProject(ctx context.Context, projectID string) ([]dto.ModuleResponse, error)
	Update(ctx context.Context, moduleID string, req *dto.UpdateModuleRequest) (*dto.ModuleResponse, error)
	Delete(ctx context.Context, moduleID string) error
}

type moduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewModuleService 创建 ModuleService 实例
func NewModuleService(repo *repository.Repository, logger *zap.Logger) ModuleService {
	return &moduleService{repo: repo, logger: logger}
}

// lookupProject 查询项目，供模块与任务校验引用
func lookupProject(ctx context.Context, repo *repository.Repository, logger *zap.Logger, projectID string) (*model.Project, error) {
	project, err := repo.Project.GetByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		logger.Error("查询项目失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return project, nil
}

// lookupStatus 校验状态存在
func lookupStatus(ctx context.Context, repo *repository.Repository, logger *zap.Logger, statusID string) (*model.Status, error) {
	if err := validateIDs(statusID); err != nil {
		return nil, err
	}
	status, err := repo.Status.GetByID(ctx, statusID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStatusNotFound
		}
		logger.Error("查询状态失败", zap.String("status_id", statusID), zap.Error(err))
		return nil, err
	}
	return status, nil
}

func (s *moduleService) getModule(ctx context.Context, moduleID string) (*model.Module, error) {
	if err := validateIDs(moduleID); err != nil {
		return nil, err
	}
	module, err := s.repo.Module.GetByID(ctx, moduleID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrModuleNotFound
		}
		s.logger.Error("查询模块失败", zap.String("module_id", moduleID), zap.Error(err))
		return nil, err
	}
	return module, nil
}

func (s *moduleService) Create(ctx context.Context, req *dto.CreateModuleRequest) (*dto.ModuleResponse, error) {
	if err := validateIDs(req.ProjectID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyModuleName
	}
	if req.EstimatedHours <= 0 {
		return nil, ErrModuleHours
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}

	project, err := lookupProject(ctx, s.repo, s.logger, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if req.StatusID != nil && *req.StatusID != "" {
		if _, err := lookupStatus(ctx, s.repo, s.logger, *req.StatusID); err != nil {
			return nil, err
		}
	} else {
		req.StatusID = nil
	}

	module := &model.Module{
		ProjectID:      project.ProjectID,
		ProjectName:    project.Title,
		Name:           name,
		Description:    req.Description,
		EstimatedHours: req.EstimatedHours,
		StatusID:       req.StatusID,
		StartDate:      start,
	}
	if err := s.repo.Module.Create(ctx, module); err != nil {
		s.logger.Error("创建模块失败", zap.String("project_id", req.ProjectID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("模块已创建", zap.String("module_id", module.ModuleID), zap.String("project_id", project.ProjectID))
	resp := toModuleResponse(module)
	return &resp, nil
}

func (s *moduleService) Get(ctx context.Context, moduleID string) (*dto.ModuleResponse, error) {
	module, err := s.getModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	resp := toModuleResponse(module)
	return &resp, nil
}

func (s *moduleService) ListByProject(ctx context.Context, projectID string) ([]dto.ModuleResponse, error) {
	if err := validateIDs(projectID); err != nil {
		return nil, err
	}
	modules, err := s.repo.Module.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询模块列表失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return toModuleResponses(modules), nil
}

// Update 部分更新模块，并重新解析所属项目标题
func (s *moduleService) Update(ctx context.Context, moduleID string, req *dto.UpdateModuleRequest) (*dto.ModuleResponse, error) {
	module, err := s.getModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyModuleName
		}
		module.Name = name
	}
	if req.Description != nil {
		module.Description = *req.Description
	}
	if req.EstimatedHours != nil {
		if *req.EstimatedHours <= 0 {
			return nil, ErrModuleHours
		}
		module.EstimatedHours = *req.EstimatedHours
	}
	if req.StatusID != nil {
		if *req.StatusID == "" {
			module.StatusID = nil
		} else {
			if _, err := lookupStatus(ctx, s.repo, s.logger, *req.StatusID); err != nil {
				return nil, err
			}
			module.StatusID = req.StatusID
		}
	}
	if req.StartDate != nil {
		if module.StartDate, err = parseDate(req.StartDate); err != nil {
			return nil, err
		}
	}

	project, err := lookupProject(ctx, s.repo, s.logger, module.ProjectID)
	if err != nil {
		return nil, err
	}
	module.ProjectName = project.Title

	if err := s.repo.Module.Update(ctx, module); err != nil {
		s.logger.Error("更新模块失败", zap.String("module_id", moduleID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("模块已更新", zap.String("module_id", moduleID))
	resp := toModuleResponse(module)
	return &resp, nil
}

func (s *moduleService) Delete(ctx context.Context, moduleID string) error {
	if err := validateIDs(moduleID); err != nil {
		return err
	}
	rows, err := s.repo.Module.Delete(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return ErrModuleHasTasks
		}
		s.logger.Error("删除模块失败", zap.String("module_id", moduleID), zap.Error(err))
		return err
	}
	if rows == 0 {
		return ErrModuleNotFound
	}
	s.logger.Info("模块已删除", zap.String("module_id", moduleID))
	return nil
}

func toModuleResponses(modules []model.Module) []dto.ModuleResponse {
	list := make([]dto.ModuleResponse, 0, len(modules))
	for i := range modules {
		list = append(list, toModuleResponse(&modules[i]))
	}
	return list
}
