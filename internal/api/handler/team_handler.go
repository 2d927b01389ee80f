package handler

import (
	"github.com/gin-gonic/gin"

	"projecthub/internal/dto"
	"projecthub/internal/service"
	"projecthub/pkg/response"
)

// TeamHandler 经理/开发者指派与项目团队 HTTP 处理器
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler 创建 TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// ── 指派（管理员） ──

// AssignManager 指派项目经理
// PUT /api/v1/admin/projects/:id/manager
func (h *TeamHandler) AssignManager(c *gin.Context) {
	var req dto.AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	project, err := h.teamSvc.AssignManager(c.Request.Context(), c.Param("id"), req.ManagerID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, project)
}

// DeassignManager 撤销项目经理
// DELETE /api/v1/admin/projects/:id/manager/:manager_id
func (h *TeamHandler) DeassignManager(c *gin.Context) {
	project, err := h.teamSvc.DeassignManager(c.Request.Context(), c.Param("id"), c.Param("manager_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, project)
}

// AssignDeveloper 将开发者加入项目团队
// PUT /api/v1/admin/projects/:id/developers
func (h *TeamHandler) AssignDeveloper(c *gin.Context) {
	var req dto.AssignDeveloperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	team, err := h.teamSvc.AssignDeveloper(c.Request.Context(), c.Param("id"), req.DeveloperID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, team)
}

// DeassignDeveloper 将开发者移出项目团队
// DELETE /api/v1/admin/projects/:id/developers/:developer_id
func (h *TeamHandler) DeassignDeveloper(c *gin.Context) {
	team, err := h.teamSvc.DeassignDeveloper(c.Request.Context(), c.Param("id"), c.Param("developer_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, team)
}

// ── 团队 CRUD ──

// CreateTeam 显式创建团队
// POST /api/v1/project-team
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	team, err := h.teamSvc.CreateTeam(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, team)
}

// ListTeams 全部团队
// GET /api/v1/project-team
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teamSvc.ListTeams(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": teams})
}

// GetTeam 项目团队
// GET /api/v1/project-team/:project_id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	team, err := h.teamSvc.GetTeam(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, team)
}

// UpdateTeam 批量增删开发者
// PATCH /api/v1/project-team/:project_id
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	var req dto.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	team, err := h.teamSvc.UpdateTeam(c.Request.Context(), c.Param("project_id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, team)
}

// DeleteTeam 删除团队
// DELETE /api/v1/project-team/:project_id
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	if err := h.teamSvc.DeleteTeam(c.Request.Context(), c.Param("project_id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetTeamProject 团队所属项目
// GET /api/v1/teams/:id/project
func (h *TeamHandler) GetTeamProject(c *gin.Context) {
	project, err := h.teamSvc.GetTeamProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, project)
}
