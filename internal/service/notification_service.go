package service

import (
	"context"

	"go.uber.org/zap"

	"projecthub/internal/dto"
	"projecthub/internal/model"
	"projecthub/internal/notify"
	"projecthub/internal/repository"
)

// 项目动态默认返回条数
const defaultActivityLimit = 50

// NotificationService 通知发件箱查询
// 投递由 notify.Dispatcher 负责，这里只读
type NotificationService interface {
	List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationEventResponse, int64, error)
	ListByProject(ctx context.Context, projectID string, limit int) ([]dto.NotificationEventResponse, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationEventResponse, int64, error) {
	events, total, err := s.repo.Outbox.ListByStatus(ctx, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询发件箱失败", zap.Error(err))
		return nil, 0, err
	}
	return toEventResponses(events), total, nil
}

func (s *notificationService) ListByProject(ctx context.Context, projectID string, limit int) ([]dto.NotificationEventResponse, error) {
	if err := validateIDs(projectID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = defaultActivityLimit
	}
	events, err := s.repo.Outbox.ListByProject(ctx, projectID, limit)
	if err != nil {
		s.logger.Error("查询项目动态失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return toEventResponses(events), nil
}

func toEventResponses(events []model.NotificationEvent) []dto.NotificationEventResponse {
	list := make([]dto.NotificationEventResponse, 0, len(events))
	for i := range events {
		list = append(list, notify.Response(&events[i]))
	}
	return list
}
