package dto

// ── 项目团队 DTO ──

// AssignManagerRequest 指派项目经理
type AssignManagerRequest struct {
	ManagerID string `json:"manager_id" binding:"required"`
}

// AssignDeveloperRequest 指派开发者
type AssignDeveloperRequest struct {
	DeveloperID string `json:"developer_id" binding:"required"`
}

// CreateTeamRequest 显式创建项目团队
// ManagerID 为空时沿用项目当前经理
type CreateTeamRequest struct {
	ProjectID  string   `json:"project_id"  binding:"required"`
	ManagerID  *string  `json:"manager_id"`
	Developers []string `json:"developers"`
}

// UpdateTeamRequest 批量增删团队开发者
type UpdateTeamRequest struct {
	AddDevelopers    []string `json:"add_developers"`
	RemoveDevelopers []string `json:"remove_developers"`
}

// TeamResponse 项目团队响应
type TeamResponse struct {
	ID         string   `json:"id"`
	ProjectID  string   `json:"project_id"`
	ManagerID  *string  `json:"manager_id,omitempty"`
	Developers []string `json:"developers"`
	Version    int      `json:"version"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}
