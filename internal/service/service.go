package service

import (
	"go.uber.org/zap"

	"projecthub/internal/repository"
	"projecthub/pkg/jwt"
	"projecthub/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Project      ProjectService
	Team         TeamService
	Module       ModuleService
	Status       StatusService
	Task         TaskService
	UserTask     UserTaskService
	Notification NotificationService
}

// Deps 可选的外部依赖；Locker 与 Blacklist 为 nil 时对应功能降级
type Deps struct {
	Locker    ProjectLocker
	Blacklist TokenBlacklist
	Uploader  storage.Uploader
}

// NewService 创建 Service 聚合
func NewService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(repo, jwtMgr, deps.Blacklist, logger),
		User:         NewUserService(repo, logger),
		Project:      NewProjectService(repo, logger),
		Team:         NewTeamService(repo, deps.Locker, logger),
		Module:       NewModuleService(repo, logger),
		Status:       NewStatusService(repo, logger),
		Task:         NewTaskService(repo, deps.Uploader, logger),
		UserTask:     NewUserTaskService(repo, logger),
		Notification: NewNotificationService(repo, logger),
	}
}
