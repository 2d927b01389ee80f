package model

import "time"

// Task 任务表 — 对应 tasks
type Task struct {
	TaskID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"task_id"`
	Title        string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Priority     string  `gorm:"type:varchar(20);not null;default:'medium'"     json:"priority"`
	Description  string  `gorm:"type:text;not null;default:''"                  json:"description"`
	TotalMinutes int     `gorm:"not null;default:0"                             json:"total_minutes"`
	ModuleID     string  `gorm:"type:uuid;not null;index"                       json:"module_id"`
	ProjectID    string  `gorm:"type:uuid;not null;index"                       json:"project_id"`
	StatusID     *string `gorm:"type:uuid"                                      json:"status_id,omitempty"`
	ImageURL     *string `gorm:"type:text"                                      json:"image_url,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }

// UserTask 用户-任务关联表 — 对应 user_tasks，(user_id, task_id) 唯一
type UserTask struct {
	UserTaskID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_task_id"`
	UserID     string    `gorm:"type:uuid;not null"                             json:"user_id"`
	TaskID     string    `gorm:"type:uuid;not null;index"                       json:"task_id"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (UserTask) TableName() string { return "user_tasks" }
