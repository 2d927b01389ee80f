package model

import "time"

// Project 项目表 — 对应 projects
// ManagerEmail 为展示缓存，关联以 ManagerID 为准
type Project struct {
	ProjectID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"project_id"`
	Title          string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description    string     `gorm:"type:text;not null;default:''"                  json:"description"`
	Technology     string     `gorm:"type:varchar(200);not null;default:''"          json:"technology"`
	EstimatedHours int        `gorm:"not null;default:0"                             json:"estimated_hours"`
	StartDate      *time.Time `gorm:"type:date"                                      json:"start_date,omitempty"`
	CompletionDate *time.Time `gorm:"type:date"                                      json:"completion_date,omitempty"`
	ManagerID      *string    `gorm:"type:uuid"                                      json:"manager_id,omitempty"`
	ManagerEmail   *string    `gorm:"type:varchar(255)"                              json:"manager_email,omitempty"`
	CreatedBy      *string    `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }

// ProjectTeam 项目团队表 — 对应 project_teams（与 projects 1:1）
// Developers 是无序集合，不含重复元素；Version 每次写入递增
type ProjectTeam struct {
	TeamID     string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"team_id"`
	ProjectID  string      `gorm:"type:uuid;not null;uniqueIndex"                 json:"project_id"`
	ManagerID  *string     `gorm:"type:uuid"                                      json:"manager_id,omitempty"`
	Developers StringArray `gorm:"type:text[];not null;default:'{}'"              json:"developers"`
	VersionedModel
}

// TableName 指定表名
func (ProjectTeam) TableName() string { return "project_teams" }
