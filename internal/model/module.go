package model

import "time"

// Module 项目模块表 — 对应 project_modules
// ProjectName 冗余存储所属项目标题，创建与更新时刷新
type Module struct {
	ModuleID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"module_id"`
	ProjectID      string     `gorm:"type:uuid;not null;index"                       json:"project_id"`
	ProjectName    string     `gorm:"type:varchar(200);not null;default:''"          json:"project_name"`
	Name           string     `gorm:"type:varchar(200);not null"                     json:"name"`
	Description    string     `gorm:"type:text;not null;default:''"                  json:"description"`
	EstimatedHours int        `gorm:"not null"                                       json:"estimated_hours"`
	StatusID       *string    `gorm:"type:uuid"                                      json:"status_id,omitempty"`
	StartDate      *time.Time `gorm:"type:date"                                      json:"start_date,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Module) TableName() string { return "project_modules" }

// Status 状态标签表 — 对应 statuses
type Status struct {
	StatusID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"status_id"`
	Label    string `gorm:"type:varchar(100);not null"                     json:"label"`
	BaseModel
}

// TableName 指定表名
func (Status) TableName() string { return "statuses" }

// StatusLabelAssigned 任务被指派时自动切换到的状态标签
const StatusLabelAssigned = "Assigned"
