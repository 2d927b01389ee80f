package handler

import (
	"github.com/gin-gonic/gin"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

// ModuleHandler 项目模块 HTTP 处理器
type ModuleHandler struct {
	moduleSvc service.ModuleService
}

// NewModuleHandler 创建 ModuleHandler
func NewModuleHandler(moduleSvc service.ModuleService) *ModuleHandler {
	return &ModuleHandler{moduleSvc: moduleSvc}
}

// CreateModule 创建模块
// POST /api/v1/modules
func (h *ModuleHandler) CreateModule(c *gin.Context) {
	var req dto.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	module, err := h.moduleSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, module)
}

// GetModule 模块详情
// GET /api/v1/modules/:id
func (h *ModuleHandler) GetModule(c *gin.Context) {
	module, err := h.moduleSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, module)
}

// ListByProject 项目下的模块
// GET /api/v1/projects/:id/modules
func (h *ModuleHandler) ListByProject(c *gin.Context) {
	modules, err := h.moduleSvc.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": modules})
}

// UpdateModule 更新模块
// PUT /api/v1/modules/:id
func (h *ModuleHandler) UpdateModule(c *gin.Context) {
	var req dto.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	module, err := h.moduleSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, module)
}

// DeleteModule 删除模块
// DELETE /api/v1/modules/:id
func (h *ModuleHandler) DeleteModule(c *gin.Context) {
	if err := h.moduleSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
