package dto

// ── 模块 DTO ──

// CreateModuleRequest 创建模块请求
type CreateModuleRequest struct {
	ProjectID      string  `json:"project_id"      binding:"required"`
	Name           string  `json:"name"            binding:"required,max=200"`
	Description    string  `json:"description"`
	EstimatedHours int     `json:"estimated_hours"`
	StatusID       *string `json:"status_id"`
	StartDate      *string `json:"start_date"`
}

// UpdateModuleRequest 更新模块请求（部分更新）
type UpdateModuleRequest struct {
	Name           *string `json:"name"            binding:"omitempty,max=200"`
	Description    *string `json:"description"`
	EstimatedHours *int    `json:"estimated_hours"`
	StatusID       *string `json:"status_id"`
	StartDate      *string `json:"start_date"`
}

// ModuleResponse 模块响应
type ModuleResponse struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	ProjectName    string  `json:"project_name"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	EstimatedHours int     `json:"estimated_hours"`
	StatusID       *string `json:"status_id,omitempty"`
	StartDate      *string `json:"start_date,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ── 状态 DTO ──

// StatusRequest 创建/更新状态请求
type StatusRequest struct {
	Label string `json:"label" binding:"required,max=100"`
}

// StatusResponse 状态响应
type StatusResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ModulesAndStatusesResponse 项目模块与全部状态
type ModulesAndStatusesResponse struct {
	Modules  []ModuleResponse `json:"modules"`
	Statuses []StatusResponse `json:"statuses"`
}
