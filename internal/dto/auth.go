package dto

// ── 认证模块 DTO ──

// RegisterRequest 注册请求；admin 角色只能通过 seed-admin 命令创建
type RegisterRequest struct {
	Name      string  `json:"name"       binding:"required,min=2,max=100"`
	Email     string  `json:"email"      binding:"required,email"`
	Password  string  `json:"password"   binding:"required,min=8,max=72"`
	Role      string  `json:"role"       binding:"omitempty,oneof=manager developer"`
	ManagerID *string `json:"manager_id" binding:"omitempty"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // Access Token 有效期（秒）
	User        UserResponse `json:"user"`
}
