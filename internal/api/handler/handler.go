package handler

import (
	"go.uber.org/zap"

	"projecthub/internal/notify"
	"projecthub/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Project      *ProjectHandler
	Team         *TeamHandler
	Module       *ModuleHandler
	Status       *StatusHandler
	Task         *TaskHandler
	UserTask     *UserTaskHandler
	Notification *NotificationHandler
	WS           *WSHandler
}

// NewHandler 创建 Handler 聚合
// uploadDir 为任务图片的临时落盘目录
func NewHandler(svc *service.Service, hub *notify.Hub, uploadDir string, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Project:      NewProjectHandler(svc.Project, svc.Team, svc.Status),
		Team:         NewTeamHandler(svc.Team),
		Module:       NewModuleHandler(svc.Module),
		Status:       NewStatusHandler(svc.Status),
		Task:         NewTaskHandler(svc.Task, svc.UserTask, uploadDir, logger),
		UserTask:     NewUserTaskHandler(svc.UserTask),
		Notification: NewNotificationHandler(svc.Notification),
		WS:           NewWSHandler(svc.Project, hub, logger),
	}
}
