package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	pkgerrors "projecthub/pkg/errors"
)

// ── 状态模块业务错误 ──

var (
	ErrStatusNotFound   = pkgerrors.New(pkgerrors.ErrNotFound, "Status not found")
	ErrEmptyStatusLabel = pkgerrors.New(pkgerrors.ErrInvalidArgument, "Status label is required")
)

// StatusService 状态标签目录
// 标签不要求唯一，任务可在任意状态间切换
type StatusService interface {
	Create(ctx context.Context, req *dto.StatusRequest) (*dto.StatusResponse, error)
	Get(ctx context.Context, statusID string) (*dto.StatusResponse, error)
	List(ctx context.Context) ([]dto.StatusResponse, error)
	Update(ctx context.Context, statusID string, req *dto.StatusRequest) (*dto.StatusResponse, error)
	Delete(ctx context.Context, statusID string) error
	// GetModulesAndStatuses 返回项目下的模块与全部状态
	GetModulesAndStatuses(ctx context.Context, projectID string) (*dto.ModulesAndStatusesResponse, error)
}

type statusService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStatusService 创建 StatusService 实例
func NewStatusService(repo *repository.Repository, logger *zap.Logger) StatusService {
	return &statusService{repo: repo, logger: logger}
}

func (s *statusService) Create(ctx context.Context, req *dto.StatusRequest) (*dto.StatusResponse, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, ErrEmptyStatusLabel
	}
	status := &model.Status{Label: label}
	if err := s.repo.Status.Create(ctx, status); err != nil {
		s.logger.Error("创建状态失败", zap.String("label", label), zap.Error(err))
		return nil, err
	}
	s.logger.Info("状态已创建", zap.String("status_id", status.StatusID), zap.String("label", label))
	resp := toStatusResponse(status)
	return &resp, nil
}

func (s *statusService) Get(ctx context.Context, statusID string) (*dto.StatusResponse, error) {
	status, err := lookupStatus(ctx, s.repo, s.logger, statusID)
	if err != nil {
		return nil, err
	}
	resp := toStatusResponse(status)
	return &resp, nil
}

func (s *statusService) List(ctx context.Context) ([]dto.StatusResponse, error) {
	statuses, err := s.repo.Status.List(ctx)
	if err != nil {
		s.logger.Error("查询状态列表失败", zap.Error(err))
		return nil, err
	}
	return toStatusResponses(statuses), nil
}

func (s *statusService) Update(ctx context.Context, statusID string, req *dto.StatusRequest) (*dto.StatusResponse, error) {
	if err := validateIDs(statusID); err != nil {
		return nil, err
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, ErrEmptyStatusLabel
	}

	status := &model.Status{StatusID: statusID, Label: label}
	rows, err := s.repo.Status.Update(ctx, status)
	if err != nil {
		s.logger.Error("更新状态失败", zap.String("status_id", statusID), zap.Error(err))
		return nil, err
	}
	if rows == 0 {
		return nil, ErrStatusNotFound
	}
	s.logger.Info("状态已更新", zap.String("status_id", statusID), zap.String("label", label))
	resp := toStatusResponse(status)
	return &resp, nil
}

func (s *statusService) Delete(ctx context.Context, statusID string) error {
	if err := validateIDs(statusID); err != nil {
		return err
	}
	rows, err := s.repo.Status.Delete(ctx, statusID)
	if err != nil {
		s.logger.Error("删除状态失败", zap.String("status_id", statusID), zap.Error(err))
		return err
	}
	if rows == 0 {
		return ErrStatusNotFound
	}
	s.logger.Info("状态已删除", zap.String("status_id", statusID))
	return nil
}

func (s *statusService) GetModulesAndStatuses(ctx context.Context, projectID string) (*dto.ModulesAndStatusesResponse, error) {
	if err := validateIDs(projectID); err != nil {
		return nil, err
	}
	if _, err := lookupProject(ctx, s.repo, s.logger, projectID); err != nil {
		return nil, err
	}

	modules, err := s.repo.Module.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("查询模块列表失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	statuses, err := s.repo.Status.List(ctx)
	if err != nil {
		s.logger.Error("查询状态列表失败", zap.Error(err))
		return nil, err
	}

	return &dto.ModulesAndStatusesResponse{
		Modules:  toModuleResponses(modules),
		Statuses: toStatusResponses(statuses),
	}, nil
}

func toStatusResponses(statuses []model.Status) []dto.StatusResponse {
	list := make([]dto.StatusResponse, 0, len(statuses))
	for i := range statuses {
		list = append(list, toStatusResponse(&statuses[i]))
	}
	return list
}
