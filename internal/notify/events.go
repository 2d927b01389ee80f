package notify

import (
	"encoding/json"

	"gorm.io/datatypes"

	"projecthub/internal/model"
)

// 事件类型
const (
	TypeManagerAssigned     = "manager_assigned"
	TypeManagerRemoved      = "manager_removed"
	TypeDeveloperAssigned   = "developer_assigned"
	TypeDeveloperDeassigned = "developer_deassigned"
	TypeTaskAssigned        = "task_assigned"
	TypeTaskRemoved         = "task_removed"
)

// 模板名：同一事件对开发者与经理使用不同正文
const (
	tplManagerAssigned     = "manager_assigned"
	tplManagerRemoved      = "manager_removed"
	tplDeveloperAssigned   = "developer_assigned"
	tplDeveloperJoinedTeam = "developer_joined_team"
	tplDeveloperDeassigned = "developer_deassigned"
	tplDeveloperLeftTeam   = "developer_left_team"
	tplTaskAssigned        = "task_assigned"
	tplTaskRemoved         = "task_removed"
)

// Args 模板参数
type Args struct {
	UserName      string `json:"user_name"`
	ProjectTitle  string `json:"project_title,omitempty"`
	DeveloperName string `json:"developer_name,omitempty"`
	TaskTitle     string `json:"task_title,omitempty"`
}

func newEvent(typ, template string, projectID string, recipient *model.User, subject string, args Args) *model.NotificationEvent {
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte("{}")
	}
	ev := &model.NotificationEvent{
		Type:      typ,
		Recipient: recipient.Email,
		Subject:   subject,
		Template:  template,
		Args:      datatypes.JSON(raw),
		Status:    model.EventStatusPending,
	}
	if projectID != "" {
		pid := projectID
		ev.ProjectID = &pid
	}
	return ev
}

// ManagerAssigned 通知经理已被指派到项目
func ManagerAssigned(project *model.Project, manager *model.User) *model.NotificationEvent {
	return newEvent(TypeManagerAssigned, tplManagerAssigned, project.ProjectID, manager,
		"Project Assignment Notification",
		Args{UserName: manager.Name, ProjectTitle: project.Title})
}

// ManagerRemoved 通知经理已被移出项目
func ManagerRemoved(project *model.Project, manager *model.User) *model.NotificationEvent {
	return newEvent(TypeManagerRemoved, tplManagerRemoved, project.ProjectID, manager,
		"Project Removal Notification",
		Args{UserName: manager.Name, ProjectTitle: project.Title})
}

// DeveloperAssigned 开发者加入项目：通知开发者本人；manager 非空时同时通知经理
func DeveloperAssigned(project *model.Project, developer, manager *model.User) []*model.NotificationEvent {
	events := []*model.NotificationEvent{
		newEvent(TypeDeveloperAssigned, tplDeveloperAssigned, project.ProjectID, developer,
			"Project Assignment Notification",
			Args{UserName: developer.Name, ProjectTitle: project.Title}),
	}
	if manager != nil {
		events = append(events, newEvent(TypeDeveloperAssigned, tplDeveloperJoinedTeam, project.ProjectID, manager,
			"Developer Assigned to Project",
			Args{UserName: manager.Name, ProjectTitle: project.Title, DeveloperName: developer.Name}))
	}
	return events
}

// DeveloperDeassigned 开发者移出项目：通知开发者本人；manager 非空时同时通知经理
func DeveloperDeassigned(project *model.Project, developer, manager *model.User) []*model.NotificationEvent {
	events := []*model.NotificationEvent{
		newEvent(TypeDeveloperDeassigned, tplDeveloperDeassigned, project.ProjectID, developer,
			"Project Removal Notification",
			Args{UserName: developer.Name, ProjectTitle: project.Title}),
	}
	if manager != nil {
		events = append(events, newEvent(TypeDeveloperDeassigned, tplDeveloperLeftTeam, project.ProjectID, manager,
			"Developer Removed from Project",
			Args{UserName: manager.Name, ProjectTitle: project.Title, DeveloperName: developer.Name}))
	}
	return events
}

// TaskAssigned 通知用户被指派了任务
func TaskAssigned(task *model.Task, user *model.User) *model.NotificationEvent {
	return newEvent(TypeTaskAssigned, tplTaskAssigned, task.ProjectID, user,
		"Task Assignment Notification",
		Args{UserName: user.Name, TaskTitle: task.Title})
}

// TaskRemoved 通知用户任务指派已撤销
func TaskRemoved(task *model.Task, user *model.User) *model.NotificationEvent {
	return newEvent(TypeTaskRemoved, tplTaskRemoved, task.ProjectID, user,
		"Task Removal Notification",
		Args{UserName: user.Name, TaskTitle: task.Title})
}
