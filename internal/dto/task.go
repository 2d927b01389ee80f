package dto

// ── 任务 DTO ──
// 创建与更新使用 multipart/form-data，可附带 image 文件

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title        string `form:"title"         json:"title"         binding:"required,max=200"`
	Priority     string `form:"priority"      json:"priority"      binding:"omitempty,oneof=low medium high"`
	Description  string `form:"description"   json:"description"`
	TotalMinutes int    `form:"total_minutes" json:"total_minutes" binding:"min=0"`
	ModuleID     string `form:"module_id"     json:"module_id"     binding:"required"`
	ProjectID    string `form:"project_id"    json:"project_id"    binding:"required"`
	StatusID     string `form:"status_id"     json:"status_id"     binding:"required"`
}

// UpdateTaskRequest 更新任务请求（部分更新）
type UpdateTaskRequest struct {
	Title        *string `form:"title"         json:"title"         binding:"omitempty,max=200"`
	Priority     *string `form:"priority"      json:"priority"      binding:"omitempty,oneof=low medium high"`
	Description  *string `form:"description"   json:"description"`
	TotalMinutes *int    `form:"total_minutes" json:"total_minutes" binding:"omitempty,min=0"`
	ModuleID     *string `form:"module_id"     json:"module_id"`
	StatusID     *string `form:"status_id"     json:"status_id"`
}

// ImageUpload 已落盘的上传文件
type ImageUpload struct {
	Path     string
	Filename string
}

// UpdateTaskStatusRequest 更新任务状态
type UpdateTaskStatusRequest struct {
	StatusID string `json:"status_id" binding:"required"`
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Priority     string  `json:"priority"`
	Description  string  `json:"description"`
	TotalMinutes int     `json:"total_minutes"`
	ModuleID     string  `json:"module_id"`
	ProjectID    string  `json:"project_id"`
	StatusID     *string `json:"status_id,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// TaskStatusResponse 任务当前状态
type TaskStatusResponse struct {
	TaskID   string  `json:"task_id"`
	StatusID *string `json:"status_id,omitempty"`
	Label    string  `json:"label,omitempty"`
}

// ── 用户任务 DTO ──

// AssignTaskRequest 指派任务给用户
type AssignTaskRequest struct {
	UserID string `json:"user_id" binding:"required"`
	TaskID string `json:"task_id" binding:"required"`
}

// UserTaskResponse 用户任务关联响应
type UserTaskResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	CreatedAt string `json:"created_at"`
}
