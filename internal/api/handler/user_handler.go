package handler

import (
	"github.com/gin-gonic/gin"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

// 导入文件大小上限
const maxImportFileSize = 5 << 20

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetUser 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, user)
}

// ListUsers 用户列表（管理员）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// ListManagers 全部经理
// GET /api/v1/admin/managers
func (h *UserHandler) ListManagers(c *gin.Context) {
	users, err := h.userSvc.ListManagers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": users})
}

// ListDevelopers 全部开发者
// GET /api/v1/admin/developers
func (h *UserHandler) ListDevelopers(c *gin.Context) {
	users, err := h.userSvc.ListDevelopers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": users})
}

// ListDevelopersByManager 经理名下的开发者
// GET /api/v1/managers/:id/developers
func (h *UserHandler) ListDevelopersByManager(c *gin.Context) {
	users, err := h.userSvc.ListDevelopersByManager(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": users})
}

// DeleteUser 删除用户（管理员）
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// ImportUsers 批量导入用户（管理员，xlsx）
// POST /api/v1/users/import
func (h *UserHandler) ImportUsers(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeInvalidArgument, "Please upload an xlsx file in field \"file\"")
		return
	}
	if file.Size > maxImportFileSize {
		response.BadRequest(c, response.CodeInvalidArgument, "Import file must not exceed 5MB")
		return
	}

	f, err := file.Open()
	if err != nil {
		bindError(c, err)
		return
	}
	defer f.Close()

	rows, err := h.userSvc.ParseImportFile(f)
	if err != nil {
		handleError(c, err)
		return
	}

	result, err := h.userSvc.ImportUsers(c.Request.Context(), rows)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}
