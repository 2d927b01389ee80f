package dto

// ── 项目模块 DTO ──

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title          string  `json:"title"           binding:"required,max=200"`
	Description    string  `json:"description"`
	Technology     string  `json:"technology"      binding:"max=200"`
	EstimatedHours int     `json:"estimated_hours" binding:"min=0"`
	StartDate      *string `json:"start_date"`      // YYYY-MM-DD
	CompletionDate *string `json:"completion_date"` // YYYY-MM-DD
	ManagerEmail   *string `json:"manager_email"   binding:"omitempty,email"`
}

// UpdateProjectRequest 更新项目请求（部分更新）
type UpdateProjectRequest struct {
	Title          *string `json:"title"           binding:"omitempty,max=200"`
	Description    *string `json:"description"`
	Technology     *string `json:"technology"      binding:"omitempty,max=200"`
	EstimatedHours *int    `json:"estimated_hours" binding:"omitempty,min=0"`
	StartDate      *string `json:"start_date"`
	CompletionDate *string `json:"completion_date"`
}

// ProjectListRequest 项目列表查询参数
type ProjectListRequest struct {
	PaginationRequest
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Technology     string  `json:"technology"`
	EstimatedHours int     `json:"estimated_hours"`
	StartDate      *string `json:"start_date,omitempty"`
	CompletionDate *string `json:"completion_date,omitempty"`
	ManagerID      *string `json:"manager_id,omitempty"`
	ManagerEmail   *string `json:"manager_email,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}
